package analyze

import "fmt"

// Kind identifies a suggestion heuristic. Each analysis yields at most
// one Suggestion per kind.
type Kind string

const (
	KindNavigation       Kind = "overcrowded-navigation"
	KindSmallText        Kind = "small-text"
	KindHeadingHierarchy Kind = "heading-hierarchy"
	KindWhitespace       Kind = "whitespace"
	KindAccessibility    Kind = "accessibility"
)

// Severity grades a suggestion.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Suggestion is one heuristic improvement recommendation.
type Suggestion struct {
	Kind     Kind     `json:"kind"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// suggestions runs the independent heuristics and deduplicates by kind.
// Order is whatever the heuristics produce; callers treat it as a set.
func suggestions(s *stats, m *Metrics) []Suggestion {
	var out []Suggestion
	seen := make(map[Kind]bool)
	add := func(sg Suggestion, ok bool) {
		if !ok || seen[sg.Kind] {
			return
		}
		seen[sg.Kind] = true
		out = append(out, sg)
	}

	add(suggestNavigation(s))
	add(suggestSmallText(s, m))
	add(suggestHeadings(s))
	add(suggestWhitespace(m))
	add(suggestAccessibility(s))
	return out
}

func suggestNavigation(s *stats) (Suggestion, bool) {
	if s.navLinks <= navLinkThreshold {
		return Suggestion{}, false
	}
	return Suggestion{
		Kind:     KindNavigation,
		Message:  fmt.Sprintf("navigation carries %d links; consider trimming below %d", s.navLinks, navLinkThreshold),
		Severity: SeverityInfo,
	}, true
}

// suggestSmallText prefers the in-page computed minimum when available
// and falls back to inline-style evidence from the snapshot.
func suggestSmallText(s *stats, m *Metrics) (Suggestion, bool) {
	small := s.inlineSmallFont
	if m != nil && m.MinFontPx > 0 {
		small = m.MinFontPx < smallFontPx
	}
	if !small {
		return Suggestion{}, false
	}
	return Suggestion{
		Kind:     KindSmallText,
		Message:  fmt.Sprintf("visible text renders below %.0fpx; raise the base font size", smallFontPx),
		Severity: SeverityWarning,
	}, true
}

func suggestHeadings(s *stats) (Suggestion, bool) {
	for i := 1; i < len(s.headings); i++ {
		if s.headings[i] > s.headings[i-1]+1 {
			return Suggestion{
				Kind: KindHeadingHierarchy,
				Message: fmt.Sprintf("heading level skips from h%d to h%d; insert the intermediate level",
					s.headings[i-1], s.headings[i]),
				Severity: SeverityInfo,
			}, true
		}
	}
	return Suggestion{}, false
}

// suggestWhitespace only fires with in-page metrics: block spacing is a
// layout property a snapshot cannot provide.
func suggestWhitespace(m *Metrics) (Suggestion, bool) {
	if m == nil || m.BlockCount == 0 || m.MeanBlockGapPx >= blockSpacingPx {
		return Suggestion{}, false
	}
	return Suggestion{
		Kind:     KindWhitespace,
		Message:  fmt.Sprintf("mean spacing between blocks is %.1fpx; content needs more breathing room", m.MeanBlockGapPx),
		Severity: SeverityInfo,
	}, true
}

func suggestAccessibility(s *stats) (Suggestion, bool) {
	if s.noAltImgs == 0 {
		return Suggestion{}, false
	}
	return Suggestion{
		Kind:     KindAccessibility,
		Message:  fmt.Sprintf("%d image(s) lack alternative text", s.noAltImgs),
		Severity: SeverityWarning,
	}, true
}
