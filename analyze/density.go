package analyze

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FindMainContent locates the main-content region of a snapshot: the
// semantic landmark when one exists, otherwise the subtree with the
// highest text density that is not dominated by links.
func FindMainContent(doc *html.Node) *html.Node {
	if lm := findLandmark(doc); lm != nil {
		return lm
	}

	body := FindBody(doc)
	if body == nil {
		return nil
	}
	if best := findDensestNode(body); best != nil {
		return best
	}
	return body
}

// findLandmark returns the first <main> or, failing that, <article>.
func findLandmark(doc *html.Node) *html.Node {
	for _, tag := range []atom.Atom{atom.Main, atom.Article} {
		if n := findFirst(doc, tag); n != nil {
			return n
		}
	}
	return nil
}

func findFirst(root *html.Node, tag atom.Atom) *html.Node {
	var found *html.Node
	var f func(*html.Node)
	f = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(root)
	return found
}

// FindBody returns the <body> element of a parsed document.
func FindBody(doc *html.Node) *html.Node {
	return findFirst(doc, atom.Body)
}

// contentTags are subtree roots worth scoring as content candidates.
var contentTags = map[atom.Atom]bool{
	atom.Div:     true,
	atom.Section: true,
	atom.Article: true,
	atom.Main:    true,
	atom.Td:      true,
}

// boilerplateTags never hold the main content themselves.
var boilerplateTags = map[atom.Atom]bool{
	atom.Nav:    true,
	atom.Header: true,
	atom.Footer: true,
	atom.Aside:  true,
}

const minContentChars = 120

type nodeScore struct {
	node     *html.Node
	textLen  int
	linkDens float64
}

// findDensestNode scores candidate subtrees by text length discounted
// by link density; heavy link fractions read as navigation, not content.
func findDensestNode(root *html.Node) *html.Node {
	var candidates []nodeScore

	var walkNodes func(*html.Node, int)
	walkNodes = func(n *html.Node, depth int) {
		if n.Type != html.ElementNode {
			return
		}
		if boilerplateTags[n.DataAtom] || IsDecorative(n) {
			return
		}

		if contentTags[n.DataAtom] {
			text := Text(n)
			if len(text) >= minContentChars {
				linkText := linkTextLen(n)
				candidates = append(candidates, nodeScore{
					node:     n,
					textLen:  len(text),
					linkDens: float64(linkText) / float64(len(text)),
				})
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkNodes(c, depth+1)
		}
	}
	walkNodes(root, 0)

	var best *nodeScore
	var bestScore float64
	for i := range candidates {
		c := &candidates[i]
		if c.linkDens > 0.5 {
			continue
		}
		score := float64(c.textLen) * (1 - c.linkDens)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best == nil {
		return nil
	}

	// Prefer the deepest candidate with near-identical score: a wrapper
	// div scoring the same as its only child is noise.
	for i := range candidates {
		c := &candidates[i]
		if c.node == best.node || c.linkDens > 0.5 {
			continue
		}
		if isAncestor(best.node, c.node) && float64(c.textLen) >= 0.9*float64(best.textLen) {
			best = c
		}
	}
	return best.node
}

func isAncestor(anc, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == anc {
			return true
		}
	}
	return false
}

// decorativeMarkers in class/id attributes flag ancillary chrome.
var decorativeMarkers = []string{
	"sidebar", "banner", "advert", "ad-", "-ad", "sponsor",
	"promo", "cookie", "popup", "newsletter", "social",
}

// IsDecorative reports whether an element looks like ancillary chrome
// rather than content: ad/sidebar class markers or a decorative ARIA
// role.
func IsDecorative(n *html.Node) bool {
	marker := strings.ToLower(attr(n, "class") + " " + attr(n, "id"))
	if marker == " " {
		return false
	}
	for _, m := range decorativeMarkers {
		if strings.Contains(marker, m) {
			return true
		}
	}
	switch attr(n, "role") {
	case "banner", "complementary", "navigation":
		return true
	}
	return false
}

// Text collects the visible text of a subtree, space-joined.
func Text(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// linkTextLen measures text living inside <a> elements.
func linkTextLen(n *html.Node) int {
	total := 0
	var f func(*html.Node, bool)
	f = func(n *html.Node, inLink bool) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			inLink = true
		}
		if n.Type == html.TextNode && inLink {
			total += len(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c, inLink)
		}
	}
	f(n, false)
	return total
}
