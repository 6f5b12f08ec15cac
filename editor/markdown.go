package editor

import (
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownToHTML converts Markdown to HTML with common extensions. Links
// open in a new tab.
func MarkdownToHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	return string(markdown.ToHTML([]byte(md), p, renderer))
}

// ImportMarkdown converts md and inserts the resulting blocks at the cursor,
// or appends the HTML to the buffer in the HTML view.
func (d *Document) ImportMarkdown(md string) error {
	blocks, err := parseBlocks(MarkdownToHTML(md))
	if err != nil {
		return err
	}
	return d.insert(blocks...)
}
