package editor

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// inline lists the elements that live inside a paragraph. Top-level runs of
// these, and of bare text, are wrapped in a <p>.
var inline = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Br: true, atom.Code: true,
	atom.Em: true, atom.I: true, atom.Kbd: true, atom.Mark: true, atom.S: true,
	atom.Small: true, atom.Span: true, atom.Strong: true, atom.Sub: true,
	atom.Sup: true, atom.U: true,
}

var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// Surface is the structured editing surface: an ordered list of block nodes
// and a cursor between them.
type Surface struct {
	blocks []*html.Node
	cursor int
}

// NewSurface parses src into a surface with the cursor at the end.
func NewSurface(src string) (*Surface, error) {
	s := &Surface{}
	if err := s.Load(src); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the surface content with src.
func (s *Surface) Load(src string) error {
	blocks, err := parseBlocks(src)
	if err != nil {
		return err
	}
	s.blocks = blocks
	s.cursor = len(blocks)
	return nil
}

// HTML serialises the surface. The result is the canonical form of its
// content.
func (s *Surface) HTML() string {
	var buf bytes.Buffer
	for _, b := range s.blocks {
		// Render only fails on writer errors or malformed void elements,
		// neither of which a parsed tree can produce.
		_ = html.Render(&buf, b)
	}
	return buf.String()
}

// Len is the number of top-level blocks.
func (s *Surface) Len() int { return len(s.blocks) }

// Cursor is the insertion point, between 0 and Len.
func (s *Surface) Cursor() int { return s.cursor }

// SetCursor moves the insertion point, clamped to the block range.
func (s *Surface) SetCursor(i int) {
	switch {
	case i < 0:
		i = 0
	case i > len(s.blocks):
		i = len(s.blocks)
	}
	s.cursor = i
}

// Insert places nodes at the cursor and moves the cursor past them.
func (s *Surface) Insert(nodes ...*html.Node) {
	if len(nodes) == 0 {
		return
	}
	out := make([]*html.Node, 0, len(s.blocks)+len(nodes))
	out = append(out, s.blocks[:s.cursor]...)
	out = append(out, nodes...)
	out = append(out, s.blocks[s.cursor:]...)
	s.blocks = out
	s.cursor += len(nodes)
}

// Delete removes block i.
func (s *Surface) Delete(i int) error {
	if i < 0 || i >= len(s.blocks) {
		return fmt.Errorf("block %d out of range [0,%d)", i, len(s.blocks))
	}
	s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
	if s.cursor > i {
		s.cursor--
	}
	return nil
}

// Block returns the serialised HTML of block i.
func (s *Surface) Block(i int) string {
	if i < 0 || i >= len(s.blocks) {
		return ""
	}
	var buf bytes.Buffer
	_ = html.Render(&buf, s.blocks[i])
	return buf.String()
}

// parseBlocks parses an HTML fragment as body content and groups stray
// inline content into paragraphs. Whitespace between blocks is dropped.
func parseBlocks(src string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(src), bodyContext)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var blocks []*html.Node
	var para *html.Node
	for _, n := range nodes {
		switch {
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) == "":
			if para != nil {
				para.AppendChild(n)
			}
			continue
		case n.Type == html.CommentNode:
			continue
		case n.Type == html.TextNode || (n.Type == html.ElementNode && inline[n.DataAtom]):
			if para == nil {
				para = element(atom.P)
				blocks = append(blocks, para)
			}
			para.AppendChild(n)
			continue
		}
		para = nil
		blocks = append(blocks, n)
	}
	for _, b := range blocks {
		trimTrailingSpace(b)
	}
	return blocks, nil
}

// trimTrailingSpace drops whitespace-only text at the end of a wrapped
// paragraph so "a <b>b</b>\n" and "a <b>b</b>" serialise the same.
func trimTrailingSpace(n *html.Node) {
	if n.DataAtom != atom.P {
		return
	}
	for c := n.LastChild; c != nil && c.Type == html.TextNode && strings.TrimSpace(c.Data) == ""; c = n.LastChild {
		n.RemoveChild(c)
	}
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a, Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}
