package restore

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ForeignNames maps Vietnamese renderings of foreign countries back to the
// English form the style guide requires. Names that double as common
// Vietnamese words or place names (Anh, Đức, Nga, Lào Cai) are left out.
var ForeignNames = map[string]string{
	"Trung Quốc":    "China",
	"Nhật Bản":      "Japan",
	"Hàn Quốc":      "the Republic of Korea",
	"Hoa Kỳ":        "the US",
	"Campuchia":     "Cambodia",
	"Cam-pu-chia":   "Cambodia",
	"Thái Lan":      "Thailand",
	"Ấn Độ":         "India",
	"Xinh-ga-po":    "Singapore",
	"In-đô-nê-xi-a": "Indonesia",
	"Ma-lai-xi-a":   "Malaysia",
	"Phi-líp-pin":   "the Philippines",
	"Ô-xtrây-li-a":  "Australia",
	"Liên bang Nga": "Russia",
	"Cộng hòa Pháp": "France",
}

// RestoreForeignNames replaces whole-word occurrences of each localized name
// in text with its canonical form. Longer names are replaced first.
func RestoreForeignNames(text string, names map[string]string) string {
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		text = replaceWord(text, k, names[k])
	}
	return text
}

// replaceWord replaces old with repl where old is not glued to other letters.
// regexp's \b is ASCII-only, so boundaries are checked by hand.
func replaceWord(text, old, repl string) string {
	if old == "" || !strings.Contains(text, old) {
		return text
	}
	var b strings.Builder
	rest := text
	for {
		i := strings.Index(rest, old)
		if i < 0 {
			b.WriteString(rest)
			break
		}
		end := i + len(old)
		before, _ := utf8.DecodeLastRuneInString(rest[:i])
		after, _ := utf8.DecodeRuneInString(rest[end:])
		if (i > 0 && isWordRune(before)) || (end < len(rest) && isWordRune(after)) {
			b.WriteString(rest[:end])
		} else {
			b.WriteString(rest[:i])
			b.WriteString(repl)
		}
		rest = rest[end:]
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'
}
