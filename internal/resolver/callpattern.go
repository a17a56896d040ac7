package resolver

import (
	"regexp"
	"strings"
)

// callSeparators join participant names in call-style event titles.
var callSeparators = []string{"+", "<>", "/", "&", "|", "x"}

// callPatterns holds one expression per separator, since RE2 cannot require
// the same separator throughout with a back-reference.
var callPatterns = buildCallPatterns()

func buildCallPatterns() []*regexp.Regexp {
	// A name is one or two words, so "Dinner with Alice & Bob" is not a call.
	const name = `\pL+(?:[ \t]+\pL+)?`
	patterns := make([]*regexp.Regexp, 0, len(callSeparators))
	for _, sep := range callSeparators {
		s := regexp.QuoteMeta(sep)
		if sep == "x" {
			// A bare x is only a separator between spaces.
			s = `[ \t]+x[ \t]+`
		} else {
			s = `[ \t]*` + s + `[ \t]*`
		}
		patterns = append(patterns, regexp.MustCompile(`^\s*`+name+`(?:`+s+name+`)+\s*$`))
	}
	return patterns
}

// IsCallTitle reports whether title looks like "Name SEP Name (SEP Name)*"
// with the same separator throughout. Each name is one or two words.
func IsCallTitle(title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	for _, re := range callPatterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}
