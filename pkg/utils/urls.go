package utils

import "regexp"

// urlPattern captures the first http(s) substring of a free-text patch
// description, up to the next character outside the word/URL set.
var urlPattern = regexp.MustCompile(`https?://[\w\-./?=&#%+:~]+`)

// ExtractURL returns the first URL embedded in the description, if any.
// Absence of a URL is an expected condition, not an error.
func ExtractURL(description string) (string, bool) {
	m := urlPattern.FindString(description)
	if m == "" {
		return "", false
	}
	return m, true
}
