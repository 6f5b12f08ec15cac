package content

import (
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultEmbedHosts are the player hosts of the built-in video providers.
var DefaultEmbedHosts = []string{"www.youtube.com", "player.vimeo.com"}

// Sanitizer cleans stored post HTML for public pages. Iframes are kept only
// when their src is an https URL on one of the embed hosts; any other iframe
// with an http(s) src becomes a plain link to it.
type Sanitizer struct {
	policy *bluemonday.Policy
	hosts  map[string]bool
}

// NewSanitizer builds a sanitizer allowing iframes from embedHosts.
func NewSanitizer(embedHosts ...string) *Sanitizer {
	s := &Sanitizer{hosts: make(map[string]bool, len(embedHosts))}
	quoted := make([]string, 0, len(embedHosts))
	for _, h := range embedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" || s.hosts[h] {
			continue
		}
		s.hosts[h] = true
		quoted = append(quoted, regexp.QuoteMeta(h))
	}

	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	if len(quoted) > 0 {
		src := regexp.MustCompile(`^https://(` + strings.Join(quoted, "|") + `)/[^\s"'<>]*$`)
		p.AllowElements("iframe")
		p.AllowAttrs("src").Matching(src).OnElements("iframe")
		p.AllowAttrs("width", "height", "frameborder", "allowfullscreen").OnElements("iframe")
	}
	s.policy = p
	return s
}

var (
	defaultOnce sync.Once
	defaultSan  *Sanitizer
)

// DefaultSanitizer allows embeds from DefaultEmbedHosts.
func DefaultSanitizer() *Sanitizer {
	defaultOnce.Do(func() { defaultSan = NewSanitizer(DefaultEmbedHosts...) })
	return defaultSan
}

// Sanitize strips scripts, event handlers and foreign iframes from stored
// post HTML before it is rendered.
func (s *Sanitizer) Sanitize(src string) string {
	if strings.Contains(strings.ToLower(src), "<iframe") {
		src = s.linkForeignFrames(src)
	}
	return s.policy.Sanitize(src)
}

// Sanitize cleans src with DefaultSanitizer.
func Sanitize(src string) string {
	return DefaultSanitizer().Sanitize(src)
}

func (s *Sanitizer) allowed(u *url.URL) bool {
	return u.Scheme == "https" && s.hosts[strings.ToLower(u.Host)]
}

// linkForeignFrames replaces iframes whose src is not an allowed embed with
// a link, so the content stays reachable after sanitizing.
func (s *Sanitizer) linkForeignFrames(src string) string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return src
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode && c.DataAtom == atom.Iframe {
				if link := s.frameLink(c); link != nil {
					n.InsertBefore(link, c)
					n.RemoveChild(c)
				}
			} else {
				walk(c)
			}
			c = next
		}
	}
	var b strings.Builder
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.Iframe {
			if link := s.frameLink(n); link != nil {
				n = link
			}
		} else {
			walk(n)
		}
		if err := html.Render(&b, n); err != nil {
			return src
		}
	}
	return b.String()
}

// frameLink returns the link replacing iframe n, or nil to keep n.
func (s *Sanitizer) frameLink(n *html.Node) *html.Node {
	var raw string
	for _, a := range n.Attr {
		if a.Key == "src" {
			raw = a.Val
		}
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || s.allowed(u) || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	a := &html.Node{Type: html.ElementNode, Data: "a", DataAtom: atom.A,
		Attr: []html.Attribute{{Key: "href", Val: u.String()}, {Key: "class", Val: "embed-link"}}}
	a.AppendChild(&html.Node{Type: html.TextNode, Data: u.String()})
	return a
}
