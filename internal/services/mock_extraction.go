package services

import (
	"context"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

//go:embed fixtures/rfp_v1.yaml
var v1Fixture []byte

// refinements are appended to V1 leaves when producing V2.
var refinements = []struct {
	path []string
	text string
}{
	{[]string{"Requirements", "Technical"}, "Scalability for 10,000+ users\n99.9% uptime SLA requirement\nMulti-language support"},
	{[]string{"Requirements", "Functional"}, "Advanced search capabilities\nWorkflow automation\nIntegration with existing systems"},
	{[]string{"Requirements", "Compliance"}, "Industry-specific regulations\nData retention policies"},
	{[]string{"Evaluation", "Criteria"}, "Vendor reputation\nInnovation and future roadmap"},
}

// MockExtractionClient produces canned trees without calling out. V1 comes
// from an embedded fixture; V2 refines the prior tree.
type MockExtractionClient struct {
	Delay time.Duration
	now   func() time.Time
}

func NewMockExtractionClient(delay time.Duration) *MockExtractionClient {
	return &MockExtractionClient{Delay: delay, now: time.Now}
}

func (c *MockExtractionClient) Process(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error) {
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	root, err := rfptree.FromYAML(v1Fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to load extraction fixture: %w", err)
	}
	base := strings.TrimSuffix(req.FileName, filepath.Ext(req.FileName))
	root, _ = rfptree.UpdateLeaf(root, []string{"Document Info", "Title"}, "RFP Analysis - "+base)

	if req.VersionType == models.Version2 {
		if req.PriorTree != nil && !req.PriorTree.IsEmpty() {
			root = req.PriorTree.Root
		}
		root = refine(root)
	}

	return &ExtractionResult{
		Success:   true,
		RequestID: fmt.Sprintf("%s_%d_%s", strings.ToLower(req.VersionType.Short()), c.now().UnixMilli(), uuid.NewString()[:8]),
		Data:      rfptree.Tree{Root: root},
	}, nil
}

func refine(root rfptree.Node) rfptree.Node {
	if n, ok := rfptree.Lookup(root, []string{"Document Info", "Title"}); ok {
		if leaf, ok := n.(*rfptree.Leaf); ok && !strings.HasSuffix(leaf.ExtractedData, " - Refined Analysis") {
			root, _ = rfptree.UpdateLeaf(root, []string{"Document Info", "Title"}, leaf.ExtractedData+" - Refined Analysis")
		}
	}
	root, _ = rfptree.UpdateLeaf(root, []string{"Document Info", "Type"}, "Comprehensive RFP Analysis")
	for _, r := range refinements {
		n, ok := rfptree.Lookup(root, r.path)
		if !ok {
			continue
		}
		if leaf, ok := n.(*rfptree.Leaf); ok {
			root, _ = rfptree.UpdateLeaf(root, r.path, leaf.ExtractedData+"\n"+r.text)
		}
	}
	return root
}
