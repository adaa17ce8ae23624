// Package locator computes and resolves node locators: root-to-node
// paths of tag names with 1-based same-tag sibling indexes, e.g.
// "/html/body/div[2]/p".
//
// A locator is scoped to one document snapshot. Resolving it on an
// unmodified snapshot returns the originating node; after structural
// mutation or navigation it may resolve to a different node or not at
// all, which callers must treat as ErrNotFound rather than a fault.
//
// The same path shape is produced and consumed in-page by the JS in
// script.go, so locators travel freely between the Go side and the
// bridge.
package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Locator is an opaque path identifying one element in a snapshot.
type Locator string

var (
	// ErrNodeDetached is returned by Compute when the node does not hang
	// off a document root.
	ErrNodeDetached = errors.New("locator: node detached from document")

	// ErrNotFound is returned by Resolve when any step of the path no
	// longer matches the document.
	ErrNotFound = errors.New("locator: not found")
)

// Step is one component of a parsed locator path.
type Step struct {
	Tag   string
	Index int // 1-based among same-tag element siblings
}

var stepRe = regexp.MustCompile(`^([a-z][a-z0-9-]*)(?:\[([0-9]+)\])?$`)

// Parse splits a locator into steps, validating the path shape.
func Parse(loc Locator) ([]Step, error) {
	s := string(loc)
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("locator: %q: missing leading slash", loc)
	}
	parts := strings.Split(s[1:], "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("locator: %q: empty path", loc)
	}

	steps := make([]Step, 0, len(parts))
	for _, p := range parts {
		m := stepRe.FindStringSubmatch(p)
		if m == nil {
			return nil, fmt.Errorf("locator: %q: bad step %q", loc, p)
		}
		idx := 1
		if m[2] != "" {
			n, err := strconv.Atoi(m[2])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("locator: %q: bad index in %q", loc, p)
			}
			idx = n
		}
		steps = append(steps, Step{Tag: m[1], Index: idx})
	}
	return steps, nil
}

// Compute builds the locator for an element by walking its parent chain
// up to the document root. The index [n] is emitted only when the
// element has same-tag siblings, matching the in-page computation.
func Compute(n *html.Node) (Locator, error) {
	if n == nil || n.Type != html.ElementNode {
		return "", fmt.Errorf("locator: compute: not an element")
	}

	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		parts = append(parts, stepString(cur))
	}

	// The walk must terminate at the document node, otherwise the
	// element lives in a detached subtree.
	top := n
	for top.Parent != nil {
		top = top.Parent
	}
	if top.Type != html.DocumentNode {
		return "", ErrNodeDetached
	}

	// parts were collected leaf-first.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return Locator("/" + strings.Join(parts, "/")), nil
}

// stepString renders one path component for an element, with a sibling
// index when the tag is not unique among its element siblings.
func stepString(n *html.Node) string {
	tag := strings.ToLower(n.Data)

	idx, total := 1, 0
	if n.Parent != nil {
		for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
			if sib.Type != html.ElementNode || !strings.EqualFold(sib.Data, tag) {
				continue
			}
			total++
			if sib == n {
				idx = total
			}
		}
	}

	if total > 1 {
		return fmt.Sprintf("%s[%d]", tag, idx)
	}
	return tag
}

// Resolve walks loc from the document root and returns the matching
// element, or ErrNotFound when any step's tag/index no longer matches.
func Resolve(root *html.Node, loc Locator) (*html.Node, error) {
	steps, err := Parse(loc)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrNotFound
	}

	cur := root
	for _, st := range steps {
		next := childByStep(cur, st)
		if next == nil {
			return nil, fmt.Errorf("%w: %s at step %s", ErrNotFound, loc, st.Tag)
		}
		cur = next
	}
	return cur, nil
}

func childByStep(parent *html.Node, st Step) *html.Node {
	seen := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || !strings.EqualFold(c.Data, st.Tag) {
			continue
		}
		seen++
		if seen == st.Index {
			return c
		}
	}
	return nil
}
