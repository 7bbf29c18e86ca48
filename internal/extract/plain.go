package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// decodeText returns content as a string without a UTF-8 BOM. Invalid UTF-8 sequences are
// replaced with the replacement character. Content holding NUL bytes is not text.
func decodeText(content []byte) (string, bool) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if bytes.IndexByte(content, 0) >= 0 {
		return "", false
	}
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd"), true
	}
	return string(content), true
}
