// Package reasoning hides the model's <think>…</think> deliberation from
// rendered output.
package reasoning

import (
	"regexp"
	"strings"
)

const (
	OpenTag  = "<think>"
	CloseTag = "</think>"
)

var span = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(OpenTag) + `.*?` + regexp.QuoteMeta(CloseTag))

// Strip removes every complete reasoning span. Removing a span can join the
// text around it into a new span, so it repeats until nothing changes;
// Strip(Strip(s)) == Strip(s).
func Strip(s string) string {
	for strings.Contains(s, CloseTag) {
		next := span.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	return s
}

// StripPartial is Strip for text that is still arriving: an opening tag
// without its closing tag hides everything after it, and a trailing prefix
// of the opening tag is held back until it can be told apart from text.
func StripPartial(s string) string {
	s = Strip(s)
	if i := strings.Index(s, OpenTag); i >= 0 {
		s = s[:i]
	}
	for {
		trimmed := trimTagPrefix(s)
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func trimTagPrefix(s string) string {
	for n := len(OpenTag) - 1; n > 0; n-- {
		if strings.HasSuffix(s, OpenTag[:n]) {
			return s[:len(s)-n]
		}
	}
	return s
}
