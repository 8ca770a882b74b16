package util

// --------------------------------------------------------------------------
// Key Matching
// --------------------------------------------------------------------------

// WildcardMatch reports whether s matches pattern. A '*' matches any run of
// characters (including none) and a '?' matches exactly one character. All
// other characters match themselves, there is no escaping.
func WildcardMatch(pattern, s string) bool {
	p := []rune(pattern)
	r := []rune(s)

	pi, si := 0, 0
	star, mark := -1, 0

	for si < len(r) {
		switch {
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = si
			pi++
		case pi < len(p) && (p[pi] == '?' || p[pi] == r[si]):
			pi++
			si++
		case star != -1:
			// backtrack: let the last star swallow one more character
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// MatchAny reports whether s matches at least one of the patterns
func MatchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		if WildcardMatch(p, s) {
			return true
		}
	}
	return false
}
