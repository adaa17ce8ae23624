// Package analyze computes structural metrics and heuristic improvement
// suggestions from a document snapshot.
//
// The snapshot is a parsed HTML tree obtained through the bridge; the
// walk is a single pass and never touches the live page. Layout-derived
// signals (computed font sizes, block spacing) cannot be read from a
// snapshot, so the engine collects them in-page with MetricsScript and
// passes them in as Metrics.
package analyze

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// readingSpeedWPM is the assumed reading rate.
	readingSpeedWPM = 200

	// navLinkThreshold: more links than this inside nav regions reads as
	// overcrowded navigation.
	navLinkThreshold = 10

	// smallFontPx: text below this computed size is flagged.
	smallFontPx = 12.0

	// blockSpacingPx: mean inter-block spacing under this is cramped.
	blockSpacingPx = 8.0
)

// Result is the outcome of one analysis pass.
type Result struct {
	ElementCount       int          `json:"element_count"`
	ImageCount         int          `json:"image_count"`
	LinkCount          int          `json:"link_count"`
	FormCount          int          `json:"form_count"`
	SectionCount       int          `json:"section_count"`
	WordCount          int          `json:"word_count"`
	ReadingTimeMinutes int          `json:"reading_time_minutes"`
	Suggestions        []Suggestion `json:"suggestions"`
}

// stats is the raw material the single walk collects for the
// suggestion heuristics.
type stats struct {
	elements  int
	images    int
	links     int
	forms     int
	sections  int
	words     int
	navLinks  int
	noAltImgs int
	// inlineSmallFont: an element styles its own text below smallFontPx.
	inlineSmallFont bool
	// headings holds h1..h6 levels in document order.
	headings []int
}

// Analyze walks the snapshot once and returns counts, reading time, and
// suggestions. metrics may be nil when no in-page collection ran.
func Analyze(doc *html.Node, metrics *Metrics) *Result {
	s := &stats{}
	walk(doc, s, false)

	res := &Result{
		ElementCount: s.elements,
		ImageCount:   s.images,
		LinkCount:    s.links,
		FormCount:    s.forms,
		SectionCount: s.sections,
		WordCount:    s.words,
		Suggestions:  suggestions(s, metrics),
	}

	res.ReadingTimeMinutes = (s.words + readingSpeedWPM - 1) / readingSpeedWPM
	if res.ReadingTimeMinutes < 1 {
		res.ReadingTimeMinutes = 1
	}
	return res
}

var backgroundImageRe = regexp.MustCompile(`(?i)background(?:-image)?\s*:\s*[^;]*url\(`)

func walk(n *html.Node, s *stats, inNav bool) {
	switch n.Type {
	case html.ElementNode:
		s.elements++

		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		case atom.Img, atom.Picture:
			if n.DataAtom == atom.Img {
				s.images++
				if !hasAttr(n, "alt") {
					s.noAltImgs++
				}
			}
		case atom.A, atom.Area:
			if attr(n, "href") != "" {
				s.links++
				if inNav {
					s.navLinks++
				}
			}
		case atom.Form:
			s.forms++
		case atom.Section, atom.Article, atom.Main:
			s.sections++
		case atom.Nav:
			inNav = true
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			s.headings = append(s.headings, int(n.Data[1]-'0'))
		}

		if style := attr(n, "style"); style != "" {
			if backgroundImageRe.MatchString(style) {
				s.images++
			}
			if hiddenByStyle(style) {
				return
			}
			if px, ok := fontSizePx(style); ok && px < smallFontPx && hasTextChild(n) {
				s.inlineSmallFont = true
			}
		}

	case html.TextNode:
		s.words += len(strings.Fields(n.Data))
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, s, inNav)
	}
}

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

func hiddenByStyle(style string) bool {
	for _, pat := range hiddenStylePatterns {
		if pat.MatchString(style) {
			return true
		}
	}
	return false
}

var fontSizeRe = regexp.MustCompile(`(?i)font-size\s*:\s*([0-9.]+)(px|pt)`)

// fontSizePx extracts an inline font-size in pixels. pt converts at the
// CSS ratio of 4/3.
func fontSizePx(style string) (float64, bool) {
	m := fontSizeRe.FindStringSubmatch(style)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.EqualFold(m[2], "pt") {
		v = v * 4 / 3
	}
	return v, true
}

func hasTextChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
