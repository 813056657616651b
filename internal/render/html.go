package render

import (
	"bytes"
	"embed"
	"html/template"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

//go:embed templates/*.html
var templateFS embed.FS

var summaryTemplate = template.Must(template.New("summary.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
}).ParseFS(templateFS, "templates/summary.html"))

// Page is the data rendered into the summary template.
type Page struct {
	Title        string
	CustomerName string
	GeneratedAt  time.Time
	Sections     []sectionView
	// Items counts the leaves and CitedPages lists every source page they
	// reference, ascending.
	Items      int
	CitedPages string
}

type sectionView struct {
	Level    int
	Name     string
	Leaf     *leafView
	Children []sectionView
}

type leafView struct {
	Body  string
	Pages string
}

// NewPage builds the view of tree. Top level sections are h2, nesting adds a
// level up to h6.
func NewPage(title, customerName string, generatedAt time.Time, tree rfptree.Tree) Page {
	page := Page{
		Title:        title,
		CustomerName: customerName,
		GeneratedAt:  generatedAt,
		Sections:     sections(tree.Root, 2),
	}
	var cited []int
	rfptree.Walk(tree.Root, func(_ []string, leaf *rfptree.Leaf) {
		page.Items++
		cited = append(cited, leaf.Pages...)
	})
	slices.Sort(cited)
	page.CitedPages = joinPages(slices.Compact(cited))
	return page
}

func sections(n rfptree.Node, level int) []sectionView {
	b, ok := n.(*rfptree.Branch)
	if !ok || b == nil {
		if leaf, ok := n.(*rfptree.Leaf); ok && leaf != nil {
			return []sectionView{{Level: level, Name: "Summary", Leaf: newLeafView(leaf)}}
		}
		return nil
	}
	out := make([]sectionView, 0, b.Len())
	for _, s := range b.Sections {
		v := sectionView{Level: level, Name: s.Name}
		if leaf, ok := s.Node.(*rfptree.Leaf); ok {
			v.Leaf = newLeafView(leaf)
		} else {
			v.Children = sections(s.Node, min(level+1, 6))
		}
		out = append(out, v)
	}
	return out
}

func newLeafView(l *rfptree.Leaf) *leafView {
	return &leafView{Body: l.ExtractedData, Pages: joinPages(l.Pages)}
}

func joinPages(pages []int) string {
	if len(pages) == 0 {
		return "-"
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}

// HTML renders page as a standalone HTML document.
func HTML(page Page) (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}
