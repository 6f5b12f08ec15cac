package views

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/eringen/postdesk/content"
)

const (
	wordsPerMinute = 200
	excerptLength  = 150
)

// PlainText returns the visible text of an HTML fragment with whitespace
// collapsed.
func PlainText(src string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return ""
	}
	doc.Find("script, style, iframe").Remove()
	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var inlineText = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Code: true, atom.Em: true,
	atom.I: true, atom.Mark: true, atom.S: true, atom.Small: true, atom.Span: true,
	atom.Strong: true, atom.Sub: true, atom.Sup: true, atom.U: true,
}

// writeText appends text content, separating block elements with spaces so
// "<p>a</p><p>b</p>" yields two words.
func writeText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	block := n.Type == html.ElementNode && !inlineText[n.DataAtom]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}

// ReadingTime estimates minutes to read src at 200 words per minute,
// rounded up.
func ReadingTime(src string) int {
	words := len(strings.Fields(PlainText(src)))
	return int(math.Ceil(float64(words) / wordsPerMinute))
}

// Excerpt truncates s to at most n runes, appending "..." when cut.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

// Card prepares a post for a listing. The excerpt comes from the meta
// description, or the body text when there is none.
func Card(p content.Post) PostCard {
	source := p.MetaDescription
	if source == "" {
		source = PlainText(p.Content)
	}
	return PostCard{
		Post:        p,
		Excerpt:     Excerpt(source, excerptLength),
		ReadingTime: ReadingTime(p.Content),
	}
}

// SplitFeatured separates the newest post from the rest for a
// featured-first layout.
func SplitFeatured(posts []content.Post) (*PostCard, []PostCard) {
	if len(posts) == 0 {
		return nil, nil
	}
	featured := Card(posts[0])
	rest := make([]PostCard, 0, len(posts)-1)
	for _, p := range posts[1:] {
		rest = append(rest, Card(p))
	}
	return &featured, rest
}

// FormatDate renders a date the way post pages show it.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}
