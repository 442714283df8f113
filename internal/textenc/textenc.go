// Package textenc turns uploaded article bytes of unknown encoding into UTF-8 text.
//
// Detection is statistical (ICU-style recognizers); decoding goes through the
// x/text encoding registry using the detected label. A file whose encoding
// cannot be determined is rejected instead of being decoded with a guess.
package textenc

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrUndetected is returned when no recognizer produced a usable label.
var ErrUndetected = errors.New("encoding not detected")

// EncodingError reports a file that could not be decoded.
type EncodingError struct {
	Filename string
	Charset  string
	Err      error
}

func (e *EncodingError) Error() string {
	if e.Charset != "" {
		return fmt.Sprintf("decode %s as %s: %v", e.Filename, e.Charset, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Filename, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Detection is the detector's best guess for a byte buffer.
type Detection struct {
	Charset    string
	Language   string
	Confidence int
}

// Decoded is canonical text plus the label used to produce it.
type Decoded struct {
	Text       string
	Encoding   string
	Confidence int
}

// Normalizer decodes uploads. MinConfidence (0-100) rejects weak detections.
type Normalizer struct {
	MinConfidence int
}

// Detect runs the statistical detector over raw.
func Detect(raw []byte) (Detection, error) {
	res, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil {
		return Detection{}, fmt.Errorf("%w: %v", ErrUndetected, err)
	}
	if res == nil || strings.TrimSpace(res.Charset) == "" {
		return Detection{}, ErrUndetected
	}
	return Detection{Charset: res.Charset, Language: res.Language, Confidence: res.Confidence}, nil
}

// Decode is Normalizer{}.Decode.
func Decode(filename string, raw []byte) (Decoded, error) {
	return Normalizer{}.Decode(filename, raw)
}

// Decode detects the encoding of raw and decodes it. Empty input is valid
// UTF-8 and yields empty text.
func (n Normalizer) Decode(filename string, raw []byte) (Decoded, error) {
	if len(raw) == 0 {
		return Decoded{Encoding: "UTF-8", Confidence: 100}, nil
	}
	det, err := Detect(raw)
	if err != nil {
		return Decoded{}, &EncodingError{Filename: filename, Err: err}
	}
	if det.Confidence < n.MinConfidence {
		return Decoded{}, &EncodingError{
			Filename: filename,
			Charset:  det.Charset,
			Err:      fmt.Errorf("%w: confidence %d below %d", ErrUndetected, det.Confidence, n.MinConfidence),
		}
	}
	enc, err := lookup(det.Charset)
	if err != nil {
		return Decoded{}, &EncodingError{Filename: filename, Charset: det.Charset, Err: err}
	}
	var text string
	if isUTF8Label(det.Charset) {
		if !utf8.Valid(raw) {
			return Decoded{}, &EncodingError{Filename: filename, Charset: det.Charset, Err: errors.New("invalid UTF-8 byte sequence")}
		}
		text = string(raw)
	} else {
		b, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return Decoded{}, &EncodingError{Filename: filename, Charset: det.Charset, Err: err}
		}
		text = string(b)
	}
	return Decoded{
		Text:       strings.TrimPrefix(text, "\ufeff"),
		Encoding:   det.Charset,
		Confidence: det.Confidence,
	}, nil
}

// detector labels that neither registry spells the same way
var aliases = map[string]string{
	"gb-18030":   "gb18030",
	"ibm420_ltr": "ibm420",
	"ibm420_rtl": "ibm420",
	"ibm424_ltr": "ibm424",
	"ibm424_rtl": "ibm424",
}

func lookup(label string) (encoding.Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(label))
	if a, ok := aliases[name]; ok {
		name = a
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc, nil
}

func isUTF8Label(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	return l == "utf-8" || l == "utf8"
}
