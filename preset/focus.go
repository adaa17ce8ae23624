package preset

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/pagecraft/analyze"
)

// generateFocus highlights the main-content region and dims its
// element siblings. When main content is the body itself there is
// nothing to contrast against, so the preset yields no rules.
func generateFocus(b *builder, doc *html.Node) {
	main := analyze.FindMainContent(doc)
	if main == nil || main.DataAtom == atom.Body {
		return
	}

	b.highlight(main, "")
	for sib := firstElementSibling(main); sib != nil; sib = nextElementSibling(sib) {
		if sib == main {
			continue
		}
		b.style(sib, map[string]string{"opacity": "0.35"})
	}
}

func firstElementSibling(n *html.Node) *html.Node {
	if n.Parent == nil {
		return nil
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func nextElementSibling(n *html.Node) *html.Node {
	for c := n.NextSibling; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}
