package filters

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/view"
)

// Markdown renders CommonMark to HTML.
//
// Params: "gfm" (default true) enables GitHub Flavored Markdown tables,
// strikethrough and autolinks. "unsafe" (default false) passes raw HTML
// through.
type Markdown struct{}

// Run implements Filter.
func (Markdown) Run(src []byte, params ir.IRObject, _ *view.Assigns) ([]byte, error) {
	var opts []goldmark.Option
	if boolParam(params, "gfm", true) {
		opts = append(opts, goldmark.WithExtensions(extension.GFM))
	}
	if boolParam(params, "unsafe", false) {
		opts = append(opts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}

	var buf bytes.Buffer
	if err := goldmark.New(opts...).Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	return buf.Bytes(), nil
}
