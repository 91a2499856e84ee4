package artifact

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Resolve interprets raw as the interior of a JSON string literal and returns
// the decoded text. Bare newlines, carriage returns and tabs, which models
// often emit inside strings, are accepted. If raw cannot be decoded (for
// example because it ends inside an escape sequence) it is returned unchanged.
func Resolve(raw string) string {
	return resolve(raw, false)
}

// ResolveStrict is like Resolve but rejects bare control characters.
func ResolveStrict(raw string) string {
	return resolve(raw, true)
}

func resolve(raw string, strict bool) string {
	if strings.IndexByte(raw, '\\') < 0 && utf8.ValidString(raw) {
		// No escapes: decoding would either return raw as is or fail.
		return raw
	}

	lit := raw
	if !strict {
		lit = escapeControlChars(raw)
	}

	var out string
	if err := json.Unmarshal([]byte(`"`+lit+`"`), &out); err != nil {
		return raw
	}
	return out
}

var controlEscaper = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)

// escapeControlChars rewrites bare control characters as JSON escapes. It is
// only applied to text that is known to sit inside a string literal.
func escapeControlChars(s string) string {
	if !strings.ContainsAny(s, "\n\r\t") {
		return s
	}
	return controlEscaper.Replace(s)
}
