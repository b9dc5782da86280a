package utils

import (
	"bytes"
	"unicode/utf8"
)

// SniffLength defines the maximum number of bytes inspected when detecting binary content.
const SniffLength = 8000

var utf8ByteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// IsBinary reports whether the provided byte slice appears to contain binary data.
// Data is binary when it holds a NUL byte or is not valid UTF-8. When truncated is
// true the slice is a prefix of a longer stream, so an incomplete rune at its end
// is tolerated.
func IsBinary(data []byte, truncated bool) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	if truncated {
		data = trimIncompleteRune(data)
	}
	return !utf8.Valid(data)
}

// IsBinaryFile classifies complete file contents. A NUL byte anywhere makes the
// file binary; UTF-8 validity is checked on the first SniffLength bytes only.
func IsBinaryFile(data []byte) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	if len(data) > SniffLength {
		return IsBinary(data[:SniffLength], true)
	}
	return IsBinary(data, false)
}

// trimIncompleteRune drops a trailing partial UTF-8 sequence of at most three bytes.
func trimIncompleteRune(data []byte) []byte {
	for trailing := 1; trailing < utf8.UTFMax && trailing <= len(data); trailing++ {
		start := len(data) - trailing
		if !utf8.RuneStart(data[start]) {
			continue
		}
		if !utf8.FullRune(data[start:]) {
			return data[:start]
		}
		break
	}
	return data
}

// StripByteOrderMark removes a leading UTF-8 byte-order mark.
func StripByteOrderMark(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8ByteOrderMark)
}
