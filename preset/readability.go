package preset

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/pagecraft/analyze"
)

// generateReadability raises the base font size and line height on the
// content root and constrains the measure to a comfortable column.
func generateReadability(b *builder, doc *html.Node) {
	root := analyze.FindMainContent(doc)
	if root == nil {
		root = analyze.FindBody(doc)
	}
	if root == nil {
		return
	}
	b.style(root, map[string]string{
		"font-size":    "18px",
		"line-height":  "1.6",
		"max-width":    "70ch",
		"margin-left":  "auto",
		"margin-right": "auto",
	})
}
