package partialjson

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrNoObject is returned when the input holds no '{' at all.
var ErrNoObject = errors.New("partialjson: no object start")

// Parser salvages string fields from a flat, possibly truncated JSON object.
type Parser struct {
	strict bool // If true, reject raw newlines in strings
}

// NewParser creates a parser. Use strict=false for LLM output.
func NewParser(strict bool) *Parser {
	return &Parser{strict: strict}
}

// Parse reads as many key/value pairs as the data holds. Leading text before the
// first '{' is skipped. Values that are not strings are skipped and reported.
func (p *Parser) Parse(data []byte) (*ParseResult, error) {
	start := bytes.IndexByte(data, '{')
	if start < 0 {
		return nil, ErrNoObject
	}

	op := &objectParser{
		data:   data,
		strict: p.strict,
		pos:    start,
		result: &ParseResult{
			Fields:      make(map[string]string),
			TruncatedAt: TruncatedComplete,
		},
	}
	op.parseObject()
	return op.result, nil
}

type objectParser struct {
	data   []byte
	strict bool
	pos    int
	result *ParseResult
}

func (p *objectParser) parseObject() {
	p.pos++ // consume '{'
	first := true

	for {
		p.skipWhitespace()

		if p.pos >= len(p.data) {
			p.result.TruncatedAt = TruncatedObject
			return
		}

		if p.data[p.pos] == '}' {
			p.pos++
			return
		}

		if !first {
			if p.data[p.pos] != ',' {
				p.result.TruncatedAt = TruncatedObject
				return
			}
			p.pos++ // consume ','
			p.skipWhitespace()
		}
		first = false

		// Parse key
		if p.pos >= len(p.data) || p.data[p.pos] != '"' {
			p.result.TruncatedAt = TruncatedKey
			return
		}
		key, ok := p.parseString()
		if !ok {
			// Incomplete key - don't include it
			p.result.TruncatedAt = TruncatedKey
			return
		}

		p.skipWhitespace()
		if p.pos >= len(p.data) || p.data[p.pos] != ':' {
			p.result.TruncatedAt = TruncatedKey
			return
		}
		p.pos++ // consume ':'
		p.skipWhitespace()

		if p.pos >= len(p.data) {
			p.result.Incomplete = append(p.result.Incomplete, key)
			p.result.TruncatedAt = TruncatedValue
			return
		}

		if p.data[p.pos] != '"' {
			p.result.Skipped = append(p.result.Skipped, key)
			if !p.skipValue() {
				p.result.TruncatedAt = TruncatedValue
				return
			}
			continue
		}

		value, ok := p.parseString()
		p.result.Fields[key] = value
		if !ok {
			p.result.Incomplete = append(p.result.Incomplete, key)
			p.result.TruncatedAt = TruncatedString
			return
		}
	}
}

// parseString decodes the string starting at p.pos. ok is false when the data
// ends before the closing quote; the decoded prefix is still returned, minus
// any escape sequence that was cut short.
func (p *objectParser) parseString() (string, bool) {
	p.pos++ // consume opening '"'
	var b strings.Builder

	for p.pos < len(p.data) {
		ch := p.data[p.pos]

		if ch == '\\' {
			if p.pos+1 >= len(p.data) {
				// Incomplete escape
				p.pos = len(p.data)
				return b.String(), false
			}
			esc := p.data[p.pos+1]
			if esc == 'u' {
				r, n, ok := p.decodeUnicodeEscape(p.pos)
				if !ok {
					p.pos = len(p.data)
					return b.String(), false
				}
				b.WriteRune(r)
				p.pos += n
				continue
			}
			b.WriteByte(unescape(esc))
			p.pos += 2
			continue
		}

		if ch == '"' {
			p.pos++ // consume closing '"'
			return b.String(), true
		}

		if ch == '\n' && p.strict {
			return b.String(), false
		}

		r, size := utf8.DecodeRune(p.data[p.pos:])
		b.WriteRune(r)
		p.pos += size
	}

	// String not closed
	return b.String(), false
}

// decodeUnicodeEscape decodes \uXXXX at i, joining a following low surrogate
// when present. It returns the rune and the number of bytes consumed.
func (p *objectParser) decodeUnicodeEscape(i int) (rune, int, bool) {
	r1, ok := p.hex4(i + 2)
	if !ok {
		return 0, 0, false
	}
	if !utf16.IsSurrogate(r1) {
		return r1, 6, true
	}
	rest := p.data[i+6:]
	if len(rest) == 0 || (rest[0] == '\\' && (len(rest) == 1 || (rest[1] == 'u' && len(rest) < 6))) {
		// The low surrogate may still be on its way.
		return 0, 0, false
	}
	if rest[0] == '\\' && rest[1] == 'u' {
		if r2, ok := p.hex4(i + 8); ok {
			if r := utf16.DecodeRune(r1, r2); r != utf8.RuneError {
				return r, 12, true
			}
		}
	}
	return utf8.RuneError, 6, true
}

func (p *objectParser) hex4(i int) (rune, bool) {
	if i+4 > len(p.data) {
		return 0, false
	}
	v, err := strconv.ParseUint(string(p.data[i:i+4]), 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// skipValue steps over a non-string value, nested or not. It returns false
// when the data ends first.
func (p *objectParser) skipValue() bool {
	depth := 0
	for p.pos < len(p.data) {
		switch ch := p.data[p.pos]; ch {
		case '"':
			if _, ok := p.parseString(); !ok {
				return false
			}
			if depth == 0 {
				return true
			}
			continue
		case '{', '[':
			depth++
		case '}', ']':
			if depth == 0 {
				return true
			}
			depth--
			if depth == 0 {
				p.pos++
				return true
			}
		case ',':
			if depth == 0 {
				return true
			}
		}
		p.pos++
	}
	return false
}

func (p *objectParser) skipWhitespace() {
	for p.pos < len(p.data) {
		ch := p.data[p.pos]
		if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			break
		}
		p.pos++
	}
}

func unescape(esc byte) byte {
	switch esc {
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	default:
		// '"', '\\', '/' and anything unknown map to themselves
		return esc
	}
}
