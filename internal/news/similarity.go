package news

// Similarity compares the normalized forms of a and b and returns a ratio in
// [0,1]. Identical normalized texts score 1; an empty normalized side scores 0.
func Similarity(a, b string) float64 {
	return normalizedSimilarity(Normalize(a), Normalize(b))
}

// Similarity uses the classifier's stop-words.
func (c *Classifier) Similarity(a, b string) float64 {
	return normalizedSimilarity(c.norm.Normalize(a), c.norm.Normalize(b))
}

// normalizedSimilarity is the matching-blocks ratio 2*M/T over runes, where M
// is the number of runes in matching blocks and T the combined length.
// Inputs are put in a fixed order first so the result does not depend on the
// argument order.
func normalizedSimilarity(na, nb string) float64 {
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if nb < na {
		na, nb = nb, na
	}
	a, b := []rune(na), []rune(nb)
	m := matchingRunes(a, b)
	return 2 * float64(m) / float64(len(a)+len(b))
}

type span struct {
	alo, ahi, blo, bhi int
}

// matchingRunes finds the longest common block, then recurses into the parts
// left and right of it.
func matchingRunes(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	matched := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, b2j, s)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch returns the earliest longest block a[i:i+k] == b[j:j+k] inside s.
func longestMatch(a []rune, b2j map[rune][]int, s span) (besti, bestj, bestk int) {
	besti, bestj = s.alo, s.blo
	j2len := map[int]int{}
	for i := s.alo; i < s.ahi; i++ {
		next := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return besti, bestj, bestk
}
