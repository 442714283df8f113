package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor locates the article image on a fetched page. baseURL resolves
// relative sources.
type Extractor interface {
	Extract(page []byte, baseURL string) (Image, bool)
}

// SelectorExtractor matches the first element for a CSS selector such as
// "img.cms-photo" or "figure.article-photo img".
type SelectorExtractor struct {
	Selector string
}

func (e SelectorExtractor) Extract(page []byte, baseURL string) (Image, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Image{}, false
	}
	sel := doc.Find(e.Selector).First()
	if sel.Length() == 0 {
		return Image{}, false
	}
	src, _ := sel.Attr("src")
	if strings.TrimSpace(src) == "" {
		src, _ = sel.Attr("data-src")
	}
	alt, _ := sel.Attr("alt")
	return build(src, alt, baseURL)
}

// New picks an extractor for selector. A plain "tag.class" selector uses
// ClassExtractor; anything else goes through goquery.
func New(selector string) Extractor {
	selector = strings.TrimSpace(selector)
	if tag, class, ok := strings.Cut(selector, "."); ok && isIdent(tag) && isIdent(class) {
		return ClassExtractor{Tag: tag, Class: class}
	}
	return SelectorExtractor{Selector: selector}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '-' || r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
