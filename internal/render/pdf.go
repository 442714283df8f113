package render

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/vnsdesk/internal/article"
)

var (
	linkRe  = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	imageRe = regexp.MustCompile(`^!\[(.*)\]\(([^)]+)\)$`)
)

// PDFOptions selects the body font. Core PDF fonts cannot show Vietnamese,
// so FontPath should point at a UTF-8 TrueType font such as DejaVuSans.
type PDFOptions struct {
	FontPath string
}

// PDF writes rec to w as a simple A4 document.
func PDF(w io.Writer, rec article.Record, opts PDFOptions) error {
	return writePDF(w, Markdown(rec), opts)
}

func writePDF(w io.Writer, markdown string, opts PDFOptions) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		family = "body"
		pdf.AddUTF8Font(family, "", opts.FontPath)
		pdf.AddUTF8Font(family, "B", opts.FontPath)
		pdf.AddUTF8Font(family, "I", opts.FontPath)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load font %s: %w", opts.FontPath, err)
		}
		tr = func(s string) string { return s }
	}
	pdf.SetFont(family, "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		switch {
		case s == "":
			pdf.Ln(3)
		case strings.HasPrefix(s, "# "):
			pdf.SetFont(family, "B", 16)
			pdf.MultiCell(0, 8, tr(strings.TrimPrefix(s, "# ")), "", "L", false)
			pdf.SetFont(family, "", 11)
		case imageRe.MatchString(s):
			// The photo is linked rather than embedded.
			m := imageRe.FindStringSubmatch(s)
			pdf.WriteLinkString(5, tr("Photo: "+m[2]), m[2])
			pdf.Ln(6)
		case strings.HasPrefix(s, "_") && strings.HasSuffix(s, "_") && len(s) > 1:
			pdf.SetFont(family, "I", 10)
			pdf.MultiCell(0, 5, tr(strings.Trim(s, "_")), "", "L", false)
			pdf.SetFont(family, "", 11)
		case strings.HasPrefix(s, "> "):
			pdf.SetFont(family, "B", 11)
			pdf.MultiCell(0, 5, tr(strings.TrimPrefix(s, "> ")), "", "L", false)
			pdf.SetFont(family, "", 11)
		default:
			writeLine(pdf, s, tr)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func writeLine(pdf *gofpdf.Fpdf, s string, tr func(string) string) {
	parts := linkRe.FindAllStringSubmatchIndex(s, -1)
	if len(parts) == 0 {
		pdf.MultiCell(0, 5, tr(s), "", "L", false)
		return
	}
	pos := 0
	for _, m := range parts {
		if m[0] > pos {
			pdf.Write(5, tr(s[pos:m[0]]))
		}
		pdf.WriteLinkString(5, tr(s[m[2]:m[3]]), s[m[4]:m[5]])
		pos = m[1]
	}
	if pos < len(s) {
		pdf.Write(5, tr(s[pos:]))
	}
	pdf.Ln(6)
}
