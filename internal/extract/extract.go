package extract

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Image is the figure found on an article page.
type Image struct {
	URL     string
	Caption string // raw alt text
}

// ClassExtractor finds the first <Tag> element carrying Class among its
// class tokens. It uses the x/net/html tokenizer tree directly and needs no
// selector engine.
type ClassExtractor struct {
	Tag   string // defaults to "img"
	Class string
}

func (e ClassExtractor) Extract(page []byte, baseURL string) (Image, bool) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil || root == nil {
		return Image{}, false
	}
	tag := e.Tag
	if tag == "" {
		tag = "img"
	}
	n := findFirst(root, func(n *html.Node) bool {
		return strings.EqualFold(n.Data, tag) && hasClass(n, e.Class)
	})
	if n == nil {
		return Image{}, false
	}
	src := attr(n, "src")
	if strings.TrimSpace(src) == "" {
		src = attr(n, "data-src")
	}
	return build(src, attr(n, "alt"), baseURL)
}

// Title returns the document <title>, or "".
func Title(page []byte) string {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil || root == nil {
		return ""
	}
	t := findFirst(root, func(n *html.Node) bool { return strings.EqualFold(n.Data, "title") })
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(t.FirstChild.Data)
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, match); res != nil {
			return res
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	if class == "" {
		return true
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// build resolves src against baseURL. An element without any source is
// treated as not found.
func build(src, alt, baseURL string) (Image, bool) {
	src = strings.TrimSpace(src)
	if src == "" {
		return Image{}, false
	}
	return Image{URL: resolve(baseURL, src), Caption: strings.TrimSpace(alt)}, true
}

func resolve(baseURL, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() || baseURL == "" {
		return r.String()
	}
	b, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
