// Package preset generates named, ordered batches of transformation
// rules from an analyzed document snapshot.
//
// Presets are pure: they read the snapshot and emit rules, they never
// touch the live document. Applying a preset means feeding the batch
// to the transform applier, which keeps its usual per-rule failure
// isolation — a preset rule whose node vanished is skipped like any
// other.
package preset

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/net/html"

	"github.com/hazyhaar/pagecraft/idgen"
	"github.com/hazyhaar/pagecraft/locator"
	"github.com/hazyhaar/pagecraft/transform"
)

// Name identifies a preset.
type Name string

const (
	Simplify       Name = "simplify"
	Clean          Name = "clean"
	Focus          Name = "focus"
	Readability    Name = "readability"
	MobileFriendly Name = "mobile-friendly"
)

// ErrUnknown reports a preset name with no generator.
var ErrUnknown = errors.New("preset: unknown preset")

var generators = map[Name]func(*builder, *html.Node){
	Simplify:       generateSimplify,
	Clean:          generateClean,
	Focus:          generateFocus,
	Readability:    generateReadability,
	MobileFriendly: generateMobileFriendly,
}

// Names lists the available presets, sorted.
func Names() []Name {
	out := make([]Name, 0, len(generators))
	for n := range generators {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Generate runs the named preset over a snapshot and returns its rule
// batch in application order. The snapshot is not modified.
func Generate(name Name, doc *html.Node) ([]transform.Rule, error) {
	gen, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	b := &builder{newID: idgen.Default}
	gen(b, doc)
	if b.err != nil {
		return nil, fmt.Errorf("preset: %s: %w", name, b.err)
	}
	return b.rules, nil
}

// builder accumulates rules with sequential order indices. The first
// construction error stops accumulation; a preset either yields a fully
// valid batch or an error.
type builder struct {
	newID idgen.Generator
	rules []transform.Rule
	err   error
}

func (b *builder) add(typ transform.Type, n *html.Node, p transform.Params) {
	if b.err != nil {
		return
	}
	loc, err := locator.Compute(n)
	if err != nil {
		b.err = err
		return
	}
	r, err := transform.NewRule(b.newID(), typ, loc, p, len(b.rules))
	if err != nil {
		b.err = err
		return
	}
	b.rules = append(b.rules, *r)
}

func (b *builder) remove(n *html.Node) {
	b.add(transform.TypeRemove, n, transform.Params{})
}

func (b *builder) style(n *html.Node, props map[string]string) {
	b.add(transform.TypeStyle, n, transform.Params{Style: props})
}

func (b *builder) highlight(n *html.Node, color string) {
	b.add(transform.TypeHighlight, n, transform.Params{Color: color})
}
