// Package extract picks remember-worthy sentences out of assistant replies.
//
// It is a keyword filter, not summarization: a reply is split on ". " and
// every piece mentioning one of the trigger phrases is kept verbatim.
package extract

import "strings"

// Delimiter separates candidate fragments.
const Delimiter = ". "

// Triggers are the lower-case phrases that mark a fragment as worth keeping.
var Triggers = []string{
	"you are",
	"remember that",
	"your name is",
	"your task is",
}

// Fragments returns, in order, every piece of text that contains a trigger
// phrase (case-insensitive). Duplicates are kept.
func Fragments(text string) []string {
	var kept []string
	for _, line := range strings.Split(text, Delimiter) {
		if matches(line) {
			kept = append(kept, line)
		}
	}
	return kept
}

// Append returns context extended with the fragments found in text, each on
// its own line, and reports whether anything was added.
func Append(context, text string) (string, bool) {
	fragments := Fragments(text)
	if len(fragments) == 0 {
		return context, false
	}
	return context + "\n" + strings.Join(fragments, "\n"), true
}

func matches(line string) bool {
	lower := strings.ToLower(line)
	for _, trigger := range Triggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}
