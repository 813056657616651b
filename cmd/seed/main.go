package main

import (
	"context"
	"flag"
	"log"

	"github.com/faisal-mohamed/rfdb-new/internal/app"
	"github.com/faisal-mohamed/rfdb-new/internal/config"
	"github.com/faisal-mohamed/rfdb-new/internal/logging"
	"github.com/faisal-mohamed/rfdb-new/internal/services"
	"github.com/faisal-mohamed/rfdb-new/internal/workflow"
)

// samples cover each stage of the review. Running the seeder twice registers
// duplicates.
var samples = []struct {
	FileName     string
	CustomerName string
	Description  string
	Tags         []string
	// Through lists the actions run after upload.
	Through []workflow.Action
}{
	{"city-portal-rfp.pdf", "City of Springfield", "Citizen services portal rebuild", []string{"civic", "web"}, nil},
	{"fleet-telematics.docx", "Metro Transit", "Telematics for 400 buses", []string{"transport"},
		[]workflow.Action{workflow.ActionProcessV1}},
	{"hospital-erp.pdf", "St. Mary Health", "ERP replacement", []string{"healthcare", "erp"},
		[]workflow.Action{workflow.ActionProcessV1, workflow.ActionCompleteV1, workflow.ActionProcessV2}},
	{"campus-network.pdf", "State University", "Campus wide network refresh", []string{"education", "network"},
		[]workflow.Action{
			workflow.ActionProcessV1, workflow.ActionCompleteV1,
			workflow.ActionProcessV2, workflow.ActionCompleteV2, workflow.ActionApprove,
		}},
}

func main() {
	ctx := context.Background()

	envFile := flag.String("env", "", "Path to .env file")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer deps.Close()

	for _, s := range samples {
		doc, err := deps.Workflow.RegisterDocument(ctx, services.RegisterInput{
			FileName:     s.FileName,
			MimeType:     "application/octet-stream",
			Content:      []byte("seeded RFP: " + s.Description),
			CustomerName: s.CustomerName,
			Description:  s.Description,
			Tags:         s.Tags,
		}, "seed-script")
		if err != nil {
			log.Printf("Failed to register %s: %v", s.FileName, err)
			continue
		}

		for _, action := range s.Through {
			if _, err := deps.Workflow.Execute(ctx, services.Command{Action: action, DocumentID: doc.ID}, "seed-script"); err != nil {
				log.Printf("Failed to run %s on %s: %v", action, s.FileName, err)
				break
			}
		}
		logger.Info("Seeded document", "file_name", s.FileName, "id", doc.ID, "steps", len(s.Through))
	}
	logger.Info("Seeding complete!")
}
