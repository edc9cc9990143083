package keyword

// MatchRatio returns a similarity ratio in [0, 1] between two strings:
// 2*LCS(a,b) / (len(a)+len(b)), computed over runes. 1.0 means identical,
// 0.0 means no common subsequence. Both empty also yields 1.0.
func MatchRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	// two-row DP over the shorter string to bound allocation
	if len(rb) < len(ra) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(ra)+1)
	cur := make([]int, len(ra)+1)
	for i := 1; i <= len(rb); i++ {
		for j := 1; j <= len(ra); j++ {
			if rb[i-1] == ra[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(ra)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}
