package preset

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/pagecraft/analyze"
)

// maxTargetRules caps per-element touch-target rules so a link farm
// does not balloon the batch.
const maxTargetRules = 40

// generateMobileFriendly constrains the layout to the viewport,
// neutralizes fixed positioning, and enlarges interactive targets.
func generateMobileFriendly(b *builder, doc *html.Node) {
	body := analyze.FindBody(doc)
	if body == nil {
		return
	}

	b.style(body, map[string]string{
		"max-width":  "100vw",
		"overflow-x": "hidden",
	})

	targets := 0
	walkElements(body, func(n *html.Node) bool {
		if n == body {
			return true
		}
		if isFixedPosition(n) {
			b.style(n, map[string]string{"position": "static"})
		}
		if targets < maxTargetRules && isTag(n, atom.Button, atom.Input, atom.Select, atom.Textarea) {
			b.style(n, map[string]string{
				"min-height": "44px",
				"min-width":  "44px",
			})
			targets++
		}
		return true
	})
}
