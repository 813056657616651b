package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faisal-mohamed/rfdb-new/internal/app"
	"github.com/faisal-mohamed/rfdb-new/internal/repository"
	"github.com/faisal-mohamed/rfdb-new/internal/services"
	"github.com/faisal-mohamed/rfdb-new/internal/workflow"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if cfg.DB.Driver != "postgres" {
				return fmt.Errorf("migrate needs the postgres driver, configured driver is %s", cfg.DB.Driver)
			}
			pool, err := app.OpenPostgres(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := repository.ApplyMigrations(cmd.Context(), pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			return nil
		},
	}
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var (
		customer    string
		description string
		tags        []string
	)
	cmd := &cobra.Command{
		Use:   "register FILE",
		Short: "Upload an RFP file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				doc, err := a.Workflow.RegisterDocument(ctx, services.RegisterInput{
					FileName:     filepath.Base(args[0]),
					MimeType:     mime.TypeByExtension(filepath.Ext(args[0])),
					Content:      content,
					CustomerName: customer,
					Description:  description,
					Tags:         tags,
				}, opts.user)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "Customer name")
	cmd.Flags().StringVar(&description, "description", "", "Free text description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag, may be repeated")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func newActionCmd(opts *rootOptions) *cobra.Command {
	var (
		versionID   string
		contentFile string
		leafPath    string
		text        string
	)
	names := make([]string, 0, len(workflow.Actions()))
	for _, a := range workflow.Actions() {
		names = append(names, string(a))
	}

	cmd := &cobra.Command{
		Use:       "action ACTION DOCUMENT_ID",
		Short:     "Run a workflow action",
		Long:      "Run a workflow action. ACTION is one of: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			action := workflow.Action(args[0])
			if !action.Valid() {
				return fmt.Errorf("unknown action %q", args[0])
			}
			command := services.Command{
				Action:     action,
				DocumentID: args[1],
				VersionID:  versionID,
				Text:       text,
			}
			if leafPath != "" {
				command.Path = strings.Split(leafPath, "/")
			}
			if contentFile != "" {
				raw, err := os.ReadFile(contentFile)
				if err != nil {
					return err
				}
				command.Content = json.RawMessage(raw)
			}

			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Workflow.Execute(ctx, command, opts.user)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&versionID, "version-id", "", "Version the action applies to")
	cmd.Flags().StringVar(&contentFile, "content", "", "JSON file with the full edited tree (save actions)")
	cmd.Flags().StringVar(&leafPath, "path", "", "Slash separated section path of a single leaf to edit (save actions)")
	cmd.Flags().StringVar(&text, "text", "", "New leaf text, used with --path")
	cmd.MarkFlagsMutuallyExclusive("content", "path")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show DOCUMENT_ID",
		Short: "Print a document with its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				doc, err := a.Workflow.GetDocument(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count documents per workflow status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				stats, err := a.Workflow.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func newBackfillCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Reset documents with an unknown workflow status to UPLOADED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Workflow.Backfill(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %d documents\n", n)
				return nil
			})
		},
	}
}
