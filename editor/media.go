package editor

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// VideoProvider rewrites watch URLs of one video host into its embeddable
// player URL.
type VideoProvider struct {
	Name string
	// Hosts are matched as substrings of the URL host.
	Hosts []string
	// Embed returns the player URL, or false when no video id is found.
	Embed func(u *url.URL) (string, bool)
	// EmbedHosts are the hosts of the URLs Embed returns.
	EmbedHosts []string
}

func (p VideoProvider) matches(host string) bool {
	host = strings.ToLower(host)
	for _, h := range p.Hosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}

// YouTube handles youtube.com watch links and youtu.be short links.
var YouTube = VideoProvider{
	Name:  "youtube",
	Hosts: []string{"youtube.com", "youtu.be"},
	Embed: func(u *url.URL) (string, bool) {
		id := ""
		if strings.Contains(strings.ToLower(u.Host), "youtu.be") {
			id = lastSegment(u.Path)
		} else if v := u.Query().Get("v"); v != "" {
			id = v
		} else {
			id = lastSegment(u.Path)
		}
		if id == "" || id == "watch" {
			return "", false
		}
		return "https://www.youtube.com/embed/" + url.PathEscape(id), true
	},
	EmbedHosts: []string{"www.youtube.com"},
}

// Vimeo handles vimeo.com links.
var Vimeo = VideoProvider{
	Name:  "vimeo",
	Hosts: []string{"vimeo.com"},
	Embed: func(u *url.URL) (string, bool) {
		id := lastSegment(u.Path)
		if id == "" {
			return "", false
		}
		return "https://player.vimeo.com/video/" + url.PathEscape(id), true
	},
	EmbedHosts: []string{"player.vimeo.com"},
}

// DefaultProviders are the hosts rewritten when no providers are configured.
var DefaultProviders = []VideoProvider{YouTube, Vimeo}

// EmbedHosts lists the player hosts of providers.
func EmbedHosts(providers []VideoProvider) []string {
	var hosts []string
	for _, p := range providers {
		hosts = append(hosts, p.EmbedHosts...)
	}
	return hosts
}

// EmbedURL rewrites raw to a player URL when its host belongs to one of
// providers. Anything else, including unparseable input, is returned as-is.
func EmbedURL(raw string, providers []VideoProvider) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	for _, p := range providers {
		if !p.matches(u.Host) {
			continue
		}
		if embed, ok := p.Embed(u); ok {
			return embed
		}
		return raw
	}
	return raw
}

func lastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

func imageNode(src, alt string) *html.Node {
	return element(atom.Img,
		attr("src", src),
		attr("alt", alt),
		attr("class", "max-w-full h-auto rounded-lg my-4"),
	)
}

func videoNode(src string) *html.Node {
	wrapper := element(atom.Div, attr("class", "video-wrapper my-6"))
	wrapper.AppendChild(element(atom.Iframe,
		attr("src", src),
		attr("width", "560"),
		attr("height", "315"),
		attr("frameborder", "0"),
		attr("allowfullscreen", ""),
		attr("class", "w-full aspect-video rounded-lg"),
	))
	return wrapper
}

func paragraphNode(s string) *html.Node {
	p := element(atom.P)
	if s != "" {
		p.AppendChild(text(s))
	}
	return p
}

func headingNode(level int, s string) *html.Node {
	levels := []atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}
	if level < 1 {
		level = 1
	}
	if level > len(levels) {
		level = len(levels)
	}
	h := element(levels[level-1])
	h.AppendChild(text(s))
	return h
}
