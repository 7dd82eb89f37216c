// Package protocol implements the line-oriented wire codec: packets
// are `type|destination|content` terminated by a newline, with `|`,
// `,`, `\`, and line breaks escaped inside each field.
package protocol

import (
	"errors"
	"strings"
)

var ErrInvalidPacket = errors.New("invalid packet format")

type Packet struct {
	Type        string
	Destination string
	Content     string
}

// ParsePacket decodes a single line. One field is a bare command, two
// fields carry a destination, three carry destination and content.
// More than three top-level fields means an unescaped delimiter.
func ParsePacket(line string) (*Packet, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	parts := splitUnescaped(line, '|')
	if len(parts) > 3 {
		return nil, ErrInvalidPacket
	}

	pkt := &Packet{Type: Unescape(parts[0])}
	if pkt.Type == "" {
		return nil, ErrInvalidPacket
	}

	if len(parts) >= 2 {
		pkt.Destination = Unescape(parts[1])
	}
	if len(parts) == 3 {
		pkt.Content = Unescape(parts[2])
	}

	return pkt, nil
}

// FormatPacket encodes a packet from its fields, escaping each one.
func FormatPacket(fields ...string) string {
	escaped := make([]string, len(fields))
	for i, field := range fields {
		escaped[i] = Escape(field)
	}
	return strings.Join(escaped, "|") + "\n"
}

// splitUnescaped splits on the delimiter, skipping escaped runes.
func splitUnescaped(s string, delimiter rune) []string {
	var parts []string
	var current strings.Builder
	escaped := false

	for _, r := range s {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			escaped = true
			current.WriteRune(r)
		case delimiter:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	parts = append(parts, current.String())
	return parts
}

// Escape protects field delimiters and line breaks inside a field.
func Escape(s string) string {
	var result strings.Builder

	for _, r := range s {
		switch r {
		case '|':
			result.WriteString("\\|")
		case ',':
			result.WriteString("\\,")
		case '\\':
			result.WriteString("\\\\")
		case '\n':
			result.WriteString("\\n")
		case '\r':
			result.WriteString("\\r")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// Unescape reverses Escape. Unrecognized escapes pass through
// verbatim, as does a trailing backslash.
func Unescape(s string) string {
	var result strings.Builder
	escaped := false

	for _, r := range s {
		if escaped {
			switch r {
			case '|', ',', '\\':
				result.WriteRune(r)
			case 'n':
				result.WriteRune('\n')
			case 'r':
				result.WriteRune('\r')
			default:
				result.WriteRune('\\')
				result.WriteRune(r)
			}
			escaped = false
			continue
		}

		if r == '\\' {
			escaped = true
			continue
		}

		result.WriteRune(r)
	}

	if escaped {
		result.WriteRune('\\')
	}

	return result.String()
}
