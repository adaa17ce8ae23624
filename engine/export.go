package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pagecraft/analyze"
)

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// ExportMarkdown converts the current document's main content region to
// markdown. Applied transformations are part of the snapshot, so the
// export reflects what the user shaped, not the original page.
func (e *Engine) ExportMarkdown(ctx context.Context) (string, error) {
	doc, err := e.snapshot(ctx)
	if err != nil {
		return "", err
	}
	main := analyze.FindMainContent(doc)
	if main == nil {
		return "", fmt.Errorf("engine: export: empty document")
	}

	var sb strings.Builder
	if err := html.Render(&sb, main); err != nil {
		return "", fmt.Errorf("engine: export: render: %w", err)
	}
	md, err := newMarkdownConverter().ConvertString(sb.String())
	if err != nil {
		return "", fmt.Errorf("engine: export: convert: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}
