package pdfcpu

import "strings"

// decodeTextOperators pulls the displayed text out of a page content
// stream by decoding the arguments of the Tj, ', " and TJ operators.
// Literal strings handle the standard escapes; hex strings are decoded
// byte-wise. Layout operators T*, Td and TD become newlines so the
// output roughly preserves line structure.
func decodeTextOperators(content []byte) string {
	var (
		out     strings.Builder
		pending []string // string operands since the last operator
	)

	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case c == '(':
			s, next := parseLiteralString(content, i)
			pending = append(pending, s)
			i = next
		case c == '<' && i+1 < len(content) && content[i+1] != '<':
			s, next := parseHexString(content, i)
			pending = append(pending, s)
			i = next
		case isRegular(c):
			start := i
			for i < len(content) && isRegular(content[i]) {
				i++
			}
			op := string(content[start:i])
			switch op {
			case "Tj", "TJ", "'", "\"":
				for _, s := range pending {
					out.WriteString(s)
				}
				pending = pending[:0]
				if op == "'" || op == "\"" {
					out.WriteByte('\n')
				}
			case "Td", "TD", "T*":
				if out.Len() > 0 {
					out.WriteByte('\n')
				}
				pending = pending[:0]
			default:
				// Numeric operands (TJ kerning, positioning args) must
				// not discard string operands collected so far.
				if !isNumeric(op) {
					pending = pending[:0]
				}
			}
		default:
			i++
		}
	}

	return collapseBlankLines(out.String())
}

// parseLiteralString decodes a ( ... ) string starting at open.
// Returns the decoded text and the index just past the closing paren.
func parseLiteralString(content []byte, open int) (string, int) {
	var b strings.Builder
	depth := 0
	i := open
	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			if i+1 >= len(content) {
				return b.String(), i + 1
			}
			i++
			switch content[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '(', ')', '\\':
				b.WriteByte(content[i])
			case '0', '1', '2', '3', '4', '5', '6', '7':
				// octal escape, up to three digits
				v := 0
				n := 0
				for n < 3 && i < len(content) && content[i] >= '0' && content[i] <= '7' {
					v = v*8 + int(content[i]-'0')
					i++
					n++
				}
				i--
				b.WriteByte(byte(v))
			}
			i++
		case '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
			i++
		case ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), i
}

// parseHexString decodes a < ... > string starting at open.
func parseHexString(content []byte, open int) (string, int) {
	var b strings.Builder
	var digits []byte
	i := open + 1
	for i < len(content) && content[i] != '>' {
		c := content[i]
		if isHexDigit(c) {
			digits = append(digits, c)
		}
		i++
	}
	// An odd final digit is padded with zero per the PDF spec.
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	for j := 0; j+1 < len(digits); j += 2 {
		b.WriteByte(hexValue(digits[j])<<4 | hexValue(digits[j+1]))
	}
	if i < len(content) {
		i++ // consume '>'
	}
	return b.String(), i
}

func isNumeric(op string) bool {
	if op == "" {
		return false
	}
	for i := 0; i < len(op); i++ {
		c := op[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}

func isRegular(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', '\x00', '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimRight(line, " "))
		}
	}
	return strings.Join(kept, "\n")
}
