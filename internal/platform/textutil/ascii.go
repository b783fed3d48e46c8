package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ToASCII drops diacritics so "Nguyễn Văn Đạt" becomes "Nguyen Van Dat".
// Letters that do not decompose (đ, Đ) are mapped explicitly.
func ToASCII(value string) string {
	value = strings.NewReplacer("đ", "d", "Đ", "D").Replace(value)
	out, _, err := transform.String(stripMarks, value)
	if err != nil {
		return value
	}
	return out
}

// Words splits on any whitespace and drops empty segments.
func Words(value string) []string {
	return strings.Fields(value)
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(word string) string {
	if word == "" {
		return ""
	}
	r := []rune(strings.ToLower(word))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
