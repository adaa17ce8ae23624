package preset

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

var fixedPositionRe = regexp.MustCompile(`(?i)position\s*:\s*(fixed|sticky)`)

func isFixedPosition(n *html.Node) bool {
	return fixedPositionRe.MatchString(attr(n, "style"))
}

var spacingRe = regexp.MustCompile(`(?i)(margin|padding)(?:-top|-bottom|-left|-right)?\s*:\s*([0-9.]+)px`)

// maxSpacingPx returns the largest inline margin/padding value in px,
// or 0 when none is declared.
func maxSpacingPx(n *html.Node) float64 {
	var max float64
	for _, m := range spacingRe.FindAllStringSubmatch(attr(n, "style"), -1) {
		if v, err := strconv.ParseFloat(m[2], 64); err == nil && v > max {
			max = v
		}
	}
	return max
}

// hasText reports whether any text node in the subtree is non-blank.
func hasText(n *html.Node) bool {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data) != ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasText(c) {
			return true
		}
	}
	return false
}

func isTag(n *html.Node, tags ...atom.Atom) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, t := range tags {
		if n.DataAtom == t {
			return true
		}
	}
	return false
}

// walkElements visits element nodes depth-first. Returning false from
// the visitor prunes the subtree, which matters when the visitor just
// emitted a remove rule for it.
func walkElements(n *html.Node, visit func(*html.Node) bool) {
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, visit)
	}
}
