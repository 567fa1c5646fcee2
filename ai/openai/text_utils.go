package openai

// excerpt returns at most max characters from the front of s, cut on a
// rune boundary.
func excerpt(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
