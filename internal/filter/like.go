package filter

// MatchLike reports whether s matches a SQL LIKE pattern where % matches any
// run of characters and _ matches exactly one. Backslash escapes the next
// pattern character. Matching is case sensitive and works on runes.
func MatchLike(s, pattern string) bool {
	return matchRunes([]rune(s), []rune(pattern))
}

func matchRunes(s, p []rune) bool {
	// Iterative matcher with single-star backtracking.
	si, pi := 0, 0
	starP, starS := -1, 0
	for si < len(s) {
		if pi < len(p) {
			switch p[pi] {
			case '%':
				starP, starS = pi, si
				pi++
				continue
			case '_':
				si++
				pi++
				continue
			case '\\':
				if pi+1 < len(p) && p[pi+1] == s[si] {
					si++
					pi += 2
					continue
				}
			default:
				if p[pi] == s[si] {
					si++
					pi++
					continue
				}
			}
		}
		if starP < 0 {
			return false
		}
		starS++
		si = starS
		pi = starP + 1
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
