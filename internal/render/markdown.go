// Package render produces review copies of processed articles.
package render

import (
	"strings"

	"github.com/hyperifyio/vnsdesk/internal/article"
)

// Markdown renders rec as a review document: headline heading, the photo
// with its caption when one was found, then the body paragraphs.
func Markdown(rec article.Record) string {
	var b strings.Builder
	headline := strings.TrimSpace(rec.Headline)
	if headline == "" {
		headline = rec.Filename
	}
	b.WriteString("# ")
	b.WriteString(headline)
	b.WriteString("\n\n")
	if rec.ImageURL != "" {
		b.WriteString("![")
		b.WriteString(escapeAlt(rec.ImageCaption))
		b.WriteString("](")
		b.WriteString(rec.ImageURL)
		b.WriteString(")\n\n")
	}
	if c := strings.TrimSpace(rec.ImageCaption); c != "" {
		b.WriteString("_")
		b.WriteString(c)
		b.WriteString("_\n\n")
	}
	for _, para := range strings.Split(rec.Body, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString(para)
		b.WriteString("\n\n")
	}
	if rec.Status.IsError() {
		b.WriteString("> ")
		b.WriteString(string(rec.Status))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func escapeAlt(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
