package catalog

// ratio returns the Ratcliff/Obershelp similarity of a and b in [0,1]:
// twice the number of matching runes divided by the total rune count.
// Matching runes are found by recursively taking the longest common block
// and repeating on the pieces to its left and right.
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(a, b)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	i, j, k := longestBlock(a, b)
	if k == 0 {
		return 0
	}
	return k + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+k:], b[j+k:])
}

// longestBlock finds the longest common contiguous run of a and b. Ties
// resolve to the earliest start in a, then in b.
func longestBlock(a, b []rune) (int, int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	bi, bj, bk := 0, 0, 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bk {
					bi, bj, bk = i-cur[j], j-cur[j], cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bi, bj, bk
}
