package artifact

import "strings"

// Extract returns the best current value of field in buffer.
//
// The last occurrence of the field's key is used, so a document restated later
// in the same buffer wins over an earlier one. A producer that echoes a key
// inside another value (or repeats the document) is tracked by its most recent
// occurrence only; no attempt is made to decide which occurrence is the answer.
//
// Extract never fails: a missing key yields an empty, incomplete result.
func Extract(buffer string, field FieldSpec) ExtractionResult {
	result := ExtractionResult{Field: field}

	start := lastValueStart(buffer, field)
	if start < 0 {
		return result
	}

	end, complete := scanValue(buffer, start)
	result.Raw = buffer[start:end]
	result.Complete = complete

	// An unterminated span holding `",` may have swallowed a separator the
	// lookahead rejected; decoding it could produce a misleading value.
	if !complete && strings.Contains(result.Raw, `",`) {
		result.Value = result.Raw
		return result
	}
	result.Value = Resolve(result.Raw)
	return result
}

// ExtractAll runs Extract for every recognized field, in document order.
func ExtractAll(buffer string) []ExtractionResult {
	results := make([]ExtractionResult, 0, len(fields))
	for _, f := range fields {
		results = append(results, Extract(buffer, f))
	}
	return results
}

// lastValueStart returns the index just past the opening quote of the last
// occurrence of field's key, or -1.
func lastValueStart(buffer string, field FieldSpec) int {
	if field.key == nil {
		return -1
	}
	locs := field.key.FindAllStringIndex(buffer, -1)
	if len(locs) == 0 {
		return -1
	}
	return locs[len(locs)-1][1]
}

type quoteKind int

const (
	quoteLiteral    quoteKind = iota // part of the value
	quoteTerminator                  // closes the value
	quotePending                     // only whitespace follows so far
)

// scanValue walks the value starting at start and returns the end of the span
// and whether a terminating quote closed it.
func scanValue(buffer string, start int) (int, bool) {
	// Brace depth is tracked for nested values; termination is quote-based only.
	depth := 0
	escaped := false

	for i := start; i < len(buffer); i++ {
		ch := buffer[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '{':
			depth++
		case ch == '}':
			if depth > 0 {
				depth--
			}
		case ch == '"':
			switch classifyQuote(buffer, i) {
			case quoteTerminator:
				return i, true
			case quotePending:
				return i, false
			}
		}
	}
	return len(buffer), false
}

// classifyQuote decides whether the unescaped quote at i closes the value: the
// first non-whitespace character after it must be ',' or '}'. Any amount of
// whitespace may sit in between, so indented and CRLF documents terminate like
// compact ones.
func classifyQuote(buffer string, i int) quoteKind {
	for j := i + 1; j < len(buffer); j++ {
		switch buffer[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case ',', '}':
			return quoteTerminator
		default:
			return quoteLiteral
		}
	}
	return quotePending
}
