package wire

import "strings"

// unreserved holds the RFC 3986 unreserved character set: letters, digits,
// and -._~. Every other byte is percent-escaped in the nickname, group name
// and login name arguments the codec escapes. NLN/ILN display-picture
// tokens are passed through unescaped in both directions, and personal
// messages travel inside XML payloads, which this escaping does not touch.
var unreserved [256]bool

func init() {
	for c := 'A'; c <= 'Z'; c++ {
		unreserved[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		unreserved[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		unreserved[c] = true
	}
	for _, c := range "-._~" {
		unreserved[c] = true
	}
}

const hexDigits = "0123456789ABCDEF"

// escapeArg percent-escapes s per RFC 3986's unreserved set. The input is
// assumed to be valid UTF-8; multi-byte runes are escaped byte by byte.
func escapeArg(s string) string {
	needsEscape := false
	for i := 0; i < len(s); i++ {
		if !unreserved[s[i]] {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved[c] {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

// unescapeArg reverses escapeArg. Malformed escape sequences (a trailing %,
// or non-hex digits) are passed through literally rather than erroring, so a
// single corrupt token never takes down the whole command.
func unescapeArg(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
