package util

import (
	"regexp"
	"strings"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	mention    = regexp.MustCompile(`@(\w+)`)
)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// NormalizeUsername lowercases a username so case variants share one identity.
func NormalizeUsername(s string) string {
	return strings.ToLower(s)
}

// ExtractMentions returns the lowercased usernames mentioned in text, left to
// right. A mention is '@' followed by a maximal run of word characters; a bare
// '@' or one followed by punctuation yields nothing. Duplicates are kept.
func ExtractMentions(text string) []string {
	matches := mention.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, NormalizeUsername(m[1]))
	}
	return out
}
