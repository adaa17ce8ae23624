package preset

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/pagecraft/analyze"
)

// generateSimplify emits remove rules for clutter: ancillary landmarks,
// ad/sidebar-marked blocks, and fixed or sticky positioned decoration.
//
// Removes are ordered last-in-document first. A locator encodes the
// count of preceding same-tag siblings, so removing a later node never
// invalidates the locator of an earlier one; the reverse order keeps
// the batch from skipping its own rules.
func generateSimplify(b *builder, doc *html.Node) {
	body := analyze.FindBody(doc)
	if body == nil {
		return
	}
	for _, n := range collectClutter(body) {
		b.remove(n)
	}
}

func collectClutter(body *html.Node) []*html.Node {
	var clutter []*html.Node
	walkElements(body, func(n *html.Node) bool {
		if n == body {
			return true
		}
		if isClutter(n) {
			clutter = append(clutter, n)
			return false
		}
		return true
	})
	reverseNodes(clutter)
	return clutter
}

func isClutter(n *html.Node) bool {
	if isTag(n, atom.Aside, atom.Footer) {
		return true
	}
	return analyze.IsDecorative(n) || isFixedPosition(n)
}

func reverseNodes(ns []*html.Node) {
	for i, j := 0, len(ns)-1; i < j; i, j = i+1, j-1 {
		ns[i], ns[j] = ns[j], ns[i]
	}
}
