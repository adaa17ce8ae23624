package preset

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/pagecraft/analyze"
)

// spacingReduceThresholdPx: inline margin/padding above this gets
// shrunk to spacingTargetPx.
const (
	spacingReduceThresholdPx = 24.0
	spacingTargetPx          = "8px"
)

// generateClean shrinks excessive inline spacing and removes decorative
// nodes that carry no text. Style rules come first (they leave the tree
// shape alone), then removes in reverse document order.
func generateClean(b *builder, doc *html.Node) {
	body := analyze.FindBody(doc)
	if body == nil {
		return
	}

	var empties []*html.Node
	walkElements(body, func(n *html.Node) bool {
		if n == body {
			return true
		}
		if analyze.IsDecorative(n) && !hasText(n) {
			empties = append(empties, n)
			return false
		}
		if maxSpacingPx(n) > spacingReduceThresholdPx {
			b.style(n, map[string]string{
				"margin":  spacingTargetPx,
				"padding": spacingTargetPx,
			})
		}
		return true
	})

	reverseNodes(empties)
	for _, n := range empties {
		b.remove(n)
	}
}
