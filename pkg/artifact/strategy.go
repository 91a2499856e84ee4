package artifact

import (
	"regexp"
	"strings"
)

// Strategy locates the candidate document text inside a producer response.
// Strategies are tried in order by a Recoverer; each one only proposes text,
// parsing is shared.
type Strategy interface {
	Name() string
	Candidate(text string) (string, bool)
}

// DefaultStrategies returns the fence strategy followed by the brace strategy.
func DefaultStrategies() []Strategy {
	return []Strategy{FenceStrategy{}, BraceStrategy{}}
}

// FenceStrategy uses the interior of the first fenced block (``` or ~~~),
// ignoring an optional language tag.
type FenceStrategy struct{}

var fencePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```[ \\t]*[A-Za-z0-9_+.-]*[ \\t]*\\r?\\n?(.*?)```"),
	regexp.MustCompile("(?s)~~~[ \\t]*[A-Za-z0-9_+.-]*[ \\t]*\\r?\\n?(.*?)~~~"),
}

func (FenceStrategy) Name() string { return "fence" }

func (FenceStrategy) Candidate(text string) (string, bool) {
	best := -1
	var interior string
	for _, re := range fencePatterns {
		m := re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		if best < 0 || m[0] < best {
			best = m[0]
			interior = text[m[2]:m[3]]
		}
	}
	if best < 0 {
		return "", false
	}
	return interior, true
}

// BraceStrategy takes everything from the first '{' to the last '}',
// discarding prose around the object.
type BraceStrategy struct{}

func (BraceStrategy) Name() string { return "brace" }

func (BraceStrategy) Candidate(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// trimToObject drops a stray token (models sometimes write "json" before the
// brace) by cutting forward to the first '{'.
func trimToObject(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if strings.HasPrefix(candidate, "{") {
		return candidate
	}
	if i := strings.IndexByte(candidate, '{'); i >= 0 {
		return candidate[i:]
	}
	return candidate
}
