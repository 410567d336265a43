package match

// Similarity scores two strings in [0,1] as one minus the rune edit distance over the
// longer length. Two empty strings are identical.
func Similarity(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 && len(br) == 0 {
		return 1
	}
	if len(ar) == 0 || len(br) == 0 {
		return 0
	}
	longest := len(ar)
	if len(br) > longest {
		longest = len(br)
	}
	score := 1 - float64(Levenshtein(ar, br))/float64(longest)
	if score < 0 {
		return 0
	}
	return score
}

// Levenshtein returns the insert/delete/substitute distance between a and b.
func Levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for c := range prev {
		prev[c] = c
	}
	for r := 1; r <= len(a); r++ {
		curr[0] = r
		for c := 1; c <= len(b); c++ {
			cost := 1
			if a[r-1] == b[c-1] {
				cost = 0
			}
			curr[c] = min(prev[c]+1, curr[c-1]+1, prev[c-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// BestFuzzy compares each token against the candidates and returns the candidate with the
// highest similarity at or above threshold. Tokens shorter than minRunes are skipped so
// short words like "b1" never fuzzy-match.
func BestFuzzy(tokens, candidates []string, minRunes int, threshold float64) (string, float64, bool) {
	var (
		best  string
		score float64
		found bool
	)
	for _, token := range tokens {
		if len([]rune(token)) < minRunes {
			continue
		}
		for _, candidate := range candidates {
			if len([]rune(candidate)) < minRunes {
				continue
			}
			sim := Similarity(token, candidate)
			if sim < threshold {
				continue
			}
			if !found || sim > score || (sim == score && candidate < best) {
				best, score, found = candidate, sim, true
			}
		}
	}
	return best, score, found
}
