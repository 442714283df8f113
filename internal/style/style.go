// Package style applies the deterministic VNS house rules to restored copy.
package style

import (
	"regexp"
	"strings"
)

// CreditSuffix is appended to the last kept line of every article.
const CreditSuffix = " — VNS"

// datelinePattern matches "<location>, <anything> (VNA) – <content>". The
// parentheses around VNA are optional; the separator is an en or em dash.
var datelinePattern = regexp.MustCompile(`^(.*?),.*?\(?VNA\)?\s*[–—]\s*(.*)$`)

// datelineIndex is the line holding the dateline in wire copy:
// headline, sapo, then the dateline paragraph.
const datelineIndex = 2

// Format rewrites the dateline, strips blank lines, credits the last body
// line and drops the trailing wire sign-off line. It never fails.
func Format(text string) string {
	lines := splitLines(text)
	if i, ok := dateline(lines); ok {
		lines[i] = rewriteDateline(lines[i])
	}
	lines = dropBlank(lines)
	if i, ok := creditLine(lines); ok {
		lines[i] = credit(lines[i])
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// SplitHeadline returns the first line as the headline and the rest as body.
func SplitHeadline(formatted string) (headline, body string) {
	headline, body, _ = strings.Cut(formatted, "\n")
	return strings.TrimSpace(headline), body
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// dateline locates the dateline line; it needs at least three raw lines.
func dateline(lines []string) (int, bool) {
	if len(lines) <= datelineIndex {
		return 0, false
	}
	return datelineIndex, true
}

// creditLine locates the line that receives the credit: the second-to-last
// non-blank line. With a single line there is nothing to credit or drop.
func creditLine(lines []string) (int, bool) {
	if len(lines) < 2 {
		return 0, false
	}
	return len(lines) - 2, true
}

func rewriteDateline(line string) string {
	m := datelinePattern.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	return strings.ToUpper(strings.TrimSpace(m[1])) + " — " + strings.TrimSpace(m[2])
}

func dropBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(l); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func credit(line string) string {
	return strings.ReplaceAll(line, "./.", ".") + CreditSuffix
}
