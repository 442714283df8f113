package textenc

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const vietnamese = "Hà Nội, ngày 5 tháng 5 (TTXVN) – Thủ tướng Phạm Minh Chính chủ trì phiên họp Chính phủ thường kỳ.\nQuốc hội thảo luận về dự án Luật Đất đai sửa đổi.\n"

const french = "Le café de la rue était très fréquenté pendant l'été. Les élèves mangeaient des crêpes et des pâtés près de la fenêtre, " +
	"où la lumière du matin éclairait la pièce. À midi, le garçon apportait une crème brûlée à chaque table, et tout le monde était ravi de cette journée.\n"

func TestDecode_UTF8RoundTrip(t *testing.T) {
	got, err := Decode("utf8.txt", []byte(vietnamese))
	require.NoError(t, err)
	assert.Equal(t, vietnamese, got.Text)
	assert.Equal(t, "UTF-8", got.Encoding)
}

func TestDecode_UTF8StripsBOM(t *testing.T) {
	got, err := Decode("bom.txt", append([]byte{0xEF, 0xBB, 0xBF}, vietnamese...))
	require.NoError(t, err)
	assert.Equal(t, vietnamese, got.Text)
}

func TestDecode_UTF16LERoundTrip(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	raw, err := enc.Bytes([]byte(vietnamese))
	require.NoError(t, err)

	got, err := Decode("utf16.txt", raw)
	require.NoError(t, err)
	assert.Equal(t, vietnamese, got.Text)
	assert.Equal(t, "utf-16le", strings.ToLower(got.Encoding))
}

func TestDecode_Latin1RoundTrip(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(french))
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "é"), "fixture must not be UTF-8")

	got, err := Decode("latin1.txt", raw)
	require.NoError(t, err)
	assert.Equal(t, french, got.Text)
}

func TestDecode_Empty(t *testing.T) {
	got, err := Decode("empty.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "", got.Text)
	assert.Equal(t, "UTF-8", got.Encoding)
}

func TestDecode_WeakDetectionIsEncodingError(t *testing.T) {
	_, err := Normalizer{MinConfidence: 101}.Decode("story.txt", []byte(vietnamese))
	require.Error(t, err)

	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, "story.txt", encErr.Filename)
	assert.True(t, errors.Is(err, ErrUndetected))
	assert.Contains(t, err.Error(), "story.txt")
}

func TestLookup_DetectorAliases(t *testing.T) {
	for _, label := range []string{"UTF-8", "ISO-8859-1", "windows-1252", "GB-18030", "Shift_JIS", "UTF-16BE", "KOI8-R"} {
		enc, err := lookup(label)
		require.NoError(t, err, label)
		assert.NotNil(t, enc, label)
	}
	_, err := lookup("x-not-a-charset")
	assert.Error(t, err)
}
