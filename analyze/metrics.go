package analyze

import "encoding/json"

// Metrics are layout-derived signals collected in-page. They complement
// the snapshot walk: computed font sizes and block spacing only exist
// after layout.
type Metrics struct {
	// MinFontPx is the smallest computed font size over visible
	// text-bearing elements. 0 = nothing measured.
	MinFontPx float64 `json:"min_font_px"`

	// MeanBlockGapPx is the mean vertical margin between sibling block
	// elements.
	MeanBlockGapPx float64 `json:"mean_block_gap_px"`

	// BlockCount is how many blocks contributed to the mean.
	BlockCount int `json:"block_count"`
}

// ParseMetrics decodes the MetricsScript result.
func ParseMetrics(raw json.RawMessage) (*Metrics, error) {
	var m Metrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MetricsScript collects Metrics in the page. It reads computed styles
// only — no offsetHeight/getBoundingClientRect — so a pointer-move-rate
// caller cannot force synchronous layout through it.
const MetricsScript = `() => {
	const textTags = ['P','SPAN','LI','TD','A','H1','H2','H3','H4','H5','H6','LABEL','BUTTON'];
	const blockTags = ['P','DIV','SECTION','ARTICLE','UL','OL','TABLE','BLOCKQUOTE','PRE','FIGURE'];
	let minFont = 0;
	let gapSum = 0, blocks = 0;
	const walker = document.createTreeWalker(document.body || document.documentElement, NodeFilter.SHOW_ELEMENT);
	let node;
	while ((node = walker.nextNode())) {
		const cs = getComputedStyle(node);
		if (cs.display === 'none' || cs.visibility === 'hidden') continue;
		if (textTags.includes(node.tagName) && node.textContent.trim()) {
			const size = parseFloat(cs.fontSize);
			if (size > 0 && (minFont === 0 || size < minFont)) minFont = size;
		}
		if (blockTags.includes(node.tagName)) {
			const gap = parseFloat(cs.marginTop) + parseFloat(cs.marginBottom);
			if (!Number.isNaN(gap)) {
				gapSum += gap;
				blocks++;
			}
		}
	}
	return {
		min_font_px: minFont,
		mean_block_gap_px: blocks > 0 ? gapSum / blocks : 0,
		block_count: blocks
	};
}`
