package extract

import "strings"

// Split cuts line at the first occurrence of sep and trims both sides.
// strings.TrimSpace covers U+3000 and the other Unicode spaces. ok is false
// when sep does not occur.
func Split(line, sep string) (label, value string, ok bool) {
	label, value, ok = strings.Cut(line, sep)
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(label), strings.TrimSpace(value), true
}
