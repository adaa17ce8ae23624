package transform

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hazyhaar/pagecraft/locator"
)

// buildScript renders the JS function expression executing one rule in
// the page. The script resolves the locator itself, mutates, and
// returns {"status": "applied" | "not_found" | "target_not_found"}.
// Resolution and mutation share one script turn, so the rule cannot
// race a navigation between the two.
func buildScript(r *Rule) (string, error) {
	var body string
	switch r.Type {
	case TypeHide:
		body = `el.style.setProperty('display', 'none', 'important');`

	case TypeRemove:
		body = `el.remove();`

	case TypeHighlight:
		color := r.Params.Color
		if color == "" {
			color = "#2563eb"
		}
		// The data flag makes re-application a no-op: one border, not two.
		body = fmt.Sprintf(`
	if (!el.dataset.pagecraftHighlight) {
		el.dataset.pagecraftHighlight = '1';
		el.style.setProperty('outline', '2px solid ' + %s);
		el.style.setProperty('outline-offset', '2px');
	}`, jsString(color))

	case TypeReplace:
		if r.Params.Markup {
			// Verbatim: no sanitization at this layer.
			body = fmt.Sprintf(`el.innerHTML = %s;`, jsString(r.Params.Content))
		} else {
			body = fmt.Sprintf(`el.textContent = %s;`, jsString(r.Params.Content))
		}

	case TypeStyle:
		// Deterministic property order keeps scripts reproducible.
		props := make([]string, 0, len(r.Params.Style))
		for p := range r.Params.Style {
			props = append(props, p)
		}
		sort.Strings(props)
		var b strings.Builder
		for _, p := range props {
			fmt.Fprintf(&b, "\n\tel.style.setProperty(%s, %s);", jsString(p), jsString(r.Params.Style[p]))
		}
		body = b.String()

	case TypeMove:
		pos, ok := insertPositions[r.Params.Position]
		if !ok {
			return "", &ValidationError{Field: "position", Reason: string(r.Params.Position)}
		}
		return fmt.Sprintf(`() => {
	const resolve = %s;
	const el = resolve(%s);
	if (!el) return {status: 'not_found'};
	const target = resolve(%s);
	if (!target) return {status: 'target_not_found'};
	target.insertAdjacentElement(%s, el);
	return {status: 'applied'};
}`, locator.ResolveScript, jsString(string(r.Locator)), jsString(string(r.Params.Target)), jsString(pos)), nil

	default:
		return "", &ValidationError{Field: "type", Reason: string(r.Type)}
	}

	return fmt.Sprintf(`() => {
	const resolve = %s;
	const el = resolve(%s);
	if (!el) return {status: 'not_found'};%s
	return {status: 'applied'};
}`, locator.ResolveScript, jsString(string(r.Locator)), indent(body)), nil
}

// insertPositions maps rule positions onto insertAdjacentElement verbs,
// all relative to the target node.
var insertPositions = map[Position]string{
	PosBefore: "beforebegin",
	PosAfter:  "afterend",
	PosAppend: "beforeend",
}

// jsString embeds a Go string as a JS string literal via JSON encoding.
func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func indent(body string) string {
	if body == "" {
		return body
	}
	if !strings.HasPrefix(body, "\n") {
		return "\n\t" + body
	}
	return body
}
