package literal

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 32

// Decode parses a single Python literal or JSON value.
// Leading and trailing whitespace is ignored; anything else after the value
// is an error.
func Decode(s string) (any, error) {
	p := &parser{src: s}
	p.skipSpace()
	v, err := p.value(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, syntaxError(p.pos, "unexpected trailing %q", p.src[p.pos:])
	}
	return v, nil
}

// DecodeList parses s and requires the result to be a list.
func DecodeList(s string) ([]any, error) {
	v, err := Decode(s)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, syntaxError(0, "expected a list, got %T", v)
	}
	return list, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) value(depth int) (any, error) {
	if depth > maxDepth {
		return nil, syntaxError(p.pos, "nesting deeper than %d", maxDepth)
	}
	if p.pos >= len(p.src) {
		return nil, syntaxError(p.pos, "unexpected end of input")
	}

	switch c := p.peek(); {
	case c == '{':
		return p.dict(depth)
	case c == '[':
		return p.list(depth, ']')
	case c == '(':
		return p.list(depth, ')')
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return p.word()
	}
}

func (p *parser) dict(depth int) (any, error) {
	p.pos++ // '{'
	d := Dict{}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return d, nil
		}

		keyPos := p.pos
		k, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		var key string
		switch kv := k.(type) {
		case string:
			key = kv
		case int64:
			key = strconv.FormatInt(kv, 10)
		default:
			return nil, syntaxError(keyPos, "unsupported dict key type %T", k)
		}

		p.skipSpace()
		if p.peek() != ':' {
			return nil, syntaxError(p.pos, "expected ':' after dict key")
		}
		p.pos++
		p.skipSpace()

		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		d.Set(key, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return d, nil
		default:
			return nil, syntaxError(p.pos, "expected ',' or '}' in dict")
		}
	}
}

func (p *parser) list(depth int, closer byte) (any, error) {
	p.pos++ // '[' or '('
	items := []any{}
	for {
		p.skipSpace()
		if p.peek() == closer {
			p.pos++
			return items, nil
		}

		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return items, nil
		default:
			return nil, syntaxError(p.pos, "expected ',' or %q in list", closer)
		}
	}
}

func (p *parser) str() (any, error) {
	quote := p.src[p.pos]
	start := p.pos
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return nil, err
			}
		case c == '\n':
			return nil, syntaxError(p.pos, "newline in string")
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return nil, syntaxError(start, "unterminated string")
}

func (p *parser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return syntaxError(p.pos, "unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\\', '\'', '"', '/':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case '0':
		b.WriteByte(0)
	case 'x':
		return p.hexEscape(b, 2)
	case 'u':
		return p.hexEscape(b, 4)
	default:
		// Python keeps unknown escapes verbatim.
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) hexEscape(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return syntaxError(p.pos, "short hex escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return syntaxError(p.pos, "bad hex escape")
	}
	p.pos += digits
	b.WriteRune(rune(n))
	return nil
}

func (p *parser) number() (any, error) {
	start := p.pos
	isFloat := false
	for p.pos < len(p.src) && p.inNumber(start) {
		if c := p.src[p.pos]; c == '.' || c == 'e' || c == 'E' {
			isFloat = true
		}
		p.pos++
	}

	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if text == "" || text == "-" || text == "+" {
		return nil, syntaxError(start, "invalid number")
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, syntaxError(start, "invalid float %q", text)
		}
		return f, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, syntaxError(start, "invalid integer %q", text)
	}
	return n, nil
}

// inNumber reports whether the byte at p.pos continues the number that
// began at start. Signs are only allowed first or straight after an exponent.
func (p *parser) inNumber(start int) bool {
	switch c := p.src[p.pos]; {
	case c >= '0' && c <= '9', c == '_', c == '.', c == 'e', c == 'E':
		return true
	case c == '-' || c == '+':
		if p.pos == start {
			return true
		}
		prev := p.src[p.pos-1]
		return prev == 'e' || prev == 'E'
	default:
		return false
	}
}

func (p *parser) word() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			p.pos++
			continue
		}
		break
	}
	switch w := p.src[start:p.pos]; w {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null":
		return nil, nil
	case "":
		return nil, syntaxError(start, "unexpected character %q", p.src[start])
	default:
		return nil, syntaxError(start, "unknown name %q", w)
	}
}
