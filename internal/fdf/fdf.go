// Package fdf reads the field values a PDF viewer posts when a form's submit
// button is pressed with the FDF export format.
package fdf

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// ContentType is the media type viewers send for FDF submissions.
const ContentType = "application/vnd.fdf"

var (
	ErrNotFDF    = errors.New("fdf: missing %FDF header")
	ErrNoFields  = errors.New("fdf: no /Fields array")
	ErrMalformed = errors.New("fdf: malformed field dictionary")
)

// Fields maps field names (/T) to their values (/V).
type Fields map[string]string

// Get returns the trimmed value of name.
func (f Fields) Get(name string) string {
	return strings.TrimSpace(f[name])
}

// Checked reports whether a checkbox style field is on. Missing fields count as on,
// so forms without an explicit checkbox accept on submit alone.
func (f Fields) Checked(name string) bool {
	v, ok := f[name]
	if !ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "off", "false", "no", "0", "":
		return false
	}
	return true
}

// IsFDF reports whether body starts with an FDF header.
func IsFDF(body []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(body, " \t\r\n"), []byte("%FDF-"))
}

// Parse extracts the /Fields array of an FDF body. Kids are flattened using
// dotted names the way viewers report fully qualified field names.
func Parse(body []byte) (Fields, error) {
	if !IsFDF(body) {
		return nil, ErrNotFDF
	}
	i := bytes.Index(body, []byte("/Fields"))
	if i < 0 {
		return nil, ErrNoFields
	}
	s := &scanner{buf: body, pos: i + len("/Fields")}
	s.skipSpace()
	if !s.consume('[') {
		return nil, ErrNoFields
	}
	out := Fields{}
	if err := s.fieldArray(out); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner struct {
	buf []byte
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.buf) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.buf[s.pos]
}

func (s *scanner) consume(c byte) bool {
	if s.peek() == c && !s.eof() {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) consumeString(lit string) bool {
	if bytes.HasPrefix(s.buf[s.pos:], []byte(lit)) {
		s.pos += len(lit)
		return true
	}
	return false
}

func (s *scanner) skipSpace() {
	for !s.eof() {
		switch c := s.peek(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0:
			s.pos++
		case c == '%':
			for !s.eof() && s.peek() != '\n' && s.peek() != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

// fieldArray reads dictionaries up to the closing bracket.
func (s *scanner) fieldArray(out Fields) error {
	for {
		s.skipSpace()
		switch {
		case s.eof():
			return ErrMalformed
		case s.consume(']'):
			return nil
		case s.consumeString("<<"):
			if err := s.fieldDict(out); err != nil {
				return err
			}
		default:
			return ErrMalformed
		}
	}
}

func (s *scanner) fieldDict(out Fields) error {
	var (
		name     string
		value    string
		hasValue bool
		kids     = Fields{}
		hasKids  bool
	)
	for {
		s.skipSpace()
		if s.eof() {
			return ErrMalformed
		}
		if s.consumeString(">>") {
			break
		}
		if !s.consume('/') {
			// stray operands such as the "0 R" of an indirect reference
			if err := s.skipObject(); err != nil {
				return err
			}
			continue
		}
		key := s.name()
		s.skipSpace()
		switch key {
		case "T":
			v, err := s.value()
			if err != nil {
				return err
			}
			name = v
		case "V":
			v, err := s.value()
			if err != nil {
				return err
			}
			value, hasValue = v, true
		case "Kids":
			if !s.consume('[') {
				return ErrMalformed
			}
			if err := s.fieldArray(kids); err != nil {
				return err
			}
			hasKids = true
		default:
			if err := s.skipObject(); err != nil {
				return err
			}
		}
	}

	if hasValue && name != "" {
		out[name] = value
	}
	if hasKids {
		for k, v := range kids {
			if name != "" {
				k = name + "." + k
			}
			out[k] = v
		}
	}
	return nil
}

func (s *scanner) name() string {
	start := s.pos
	for !s.eof() {
		c := s.peek()
		if isDelimiter(c) || c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			break
		}
		s.pos++
	}
	return decodeName(string(s.buf[start:s.pos]))
}

// value reads a string, hex string, name or bare token as text.
func (s *scanner) value() (string, error) {
	switch c := s.peek(); {
	case c == '(':
		s.pos++
		return s.literal()
	case c == '<' && !bytes.HasPrefix(s.buf[s.pos:], []byte("<<")):
		s.pos++
		return s.hex()
	case c == '/':
		s.pos++
		return s.name(), nil
	case c == '[':
		// multi-select choice fields; keep the first entry
		s.pos++
		var first string
		for {
			s.skipSpace()
			if s.eof() {
				return "", ErrMalformed
			}
			if s.consume(']') {
				return first, nil
			}
			v, err := s.value()
			if err != nil {
				return "", err
			}
			if first == "" {
				first = v
			}
		}
	default:
		start := s.pos
		for !s.eof() && !isDelimiter(s.peek()) && s.peek() > ' ' {
			s.pos++
		}
		if start == s.pos {
			return "", ErrMalformed
		}
		return string(s.buf[start:s.pos]), nil
	}
}

func (s *scanner) literal() (string, error) {
	var b strings.Builder
	depth := 1
	for !s.eof() {
		c := s.buf[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return decodeText(b.String()), nil
			}
			b.WriteByte(c)
		case '\\':
			if s.eof() {
				return "", ErrMalformed
			}
			e := s.buf[s.pos]
			s.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '\r':
				s.consume('\n')
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				oct := []byte{e}
				for len(oct) < 3 && s.peek() >= '0' && s.peek() <= '7' && !s.eof() {
					oct = append(oct, s.buf[s.pos])
					s.pos++
				}
				n, _ := strconv.ParseUint(string(oct), 8, 16)
				b.WriteByte(byte(n))
			default:
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", ErrMalformed
}

func (s *scanner) hex() (string, error) {
	var digits []byte
	for !s.eof() {
		c := s.buf[s.pos]
		s.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				n, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return "", ErrMalformed
				}
				out[i] = byte(n)
			}
			return decodeText(string(out)), nil
		}
		if c > ' ' {
			digits = append(digits, c)
		}
	}
	return "", ErrMalformed
}

// skipObject steps over a value this package does not interpret.
func (s *scanner) skipObject() error {
	switch {
	case s.consumeString("<<"):
		depth := 1
		for depth > 0 {
			if s.eof() {
				return ErrMalformed
			}
			switch {
			case s.consumeString("<<"):
				depth++
			case s.consumeString(">>"):
				depth--
			case s.peek() == '(':
				s.pos++
				if _, err := s.literal(); err != nil {
					return err
				}
			default:
				s.pos++
			}
		}
		return nil
	case s.consume('['):
		for {
			s.skipSpace()
			if s.eof() {
				return ErrMalformed
			}
			if s.consume(']') {
				return nil
			}
			if err := s.skipObject(); err != nil {
				return err
			}
		}
	default:
		_, err := s.value()
		return err
	}
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// decodeName expands #xx escapes in a name object.
func decodeName(n string) string {
	if !strings.Contains(n, "#") {
		return n
	}
	var b strings.Builder
	for i := 0; i < len(n); i++ {
		if n[i] == '#' && i+2 < len(n) {
			if v, err := strconv.ParseUint(n[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(n[i])
	}
	return b.String()
}

// decodeText converts UTF-16BE strings (with BOM) to UTF-8; other strings pass through.
func decodeText(s string) string {
	if len(s) < 2 || s[0] != 0xFE || s[1] != 0xFF {
		return s
	}
	u := []rune{}
	for i := 2; i+1 < len(s); i += 2 {
		r := rune(s[i])<<8 | rune(s[i+1])
		if r >= 0xD800 && r < 0xDC00 && i+3 < len(s) {
			lo := rune(s[i+2])<<8 | rune(s[i+3])
			if lo >= 0xDC00 && lo < 0xE000 {
				u = append(u, (r-0xD800)<<10+(lo-0xDC00)+0x10000)
				i += 2
				continue
			}
		}
		u = append(u, r)
	}
	return string(u)
}
