// Package tags converts between the space-separated tag string stored on a
// post and its token sequence.
package tags

import "strings"

const sep = " "

// Parse splits text on single spaces and drops empty tokens. Order is kept
// and duplicates are not removed.
func Parse(text string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Serialize joins tokens with a single space.
func Serialize(tokens []string) string {
	return strings.Join(tokens, sep)
}

// Normalize is Serialize(Parse(text)), the form persisted for a post.
func Normalize(text string) string {
	return Serialize(Parse(text))
}
