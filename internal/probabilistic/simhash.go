package probabilistic

import (
	"math/bits"
	"regexp"
	"strings"
)

var stopWords = map[string]bool{
	"i": true, "me": true, "my": true, "myself": true, "we": true, "our": true,
	"ours": true, "ourselves": true, "you": true, "your": true, "yours": true,
	"yourself": true, "yourselves": true, "he": true, "him": true, "his": true,
	"himself": true, "she": true, "her": true, "hers": true, "herself": true,
	"it": true, "its": true, "itself": true, "they": true, "them": true,
	"their": true, "theirs": true, "themselves": true, "what": true, "which": true,
	"who": true, "whom": true, "this": true, "that": true, "these": true,
	"those": true, "am": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true, "had": true,
	"having": true, "do": true, "does": true, "did": true, "doing": true, "a": true,
	"an": true, "the": true, "and": true, "but": true, "if": true, "or": true,
	"because": true, "as": true, "until": true, "while": true, "of": true,
	"at": true, "by": true, "for": true, "with": true, "about": true,
	"against": true, "between": true, "into": true, "through": true,
	"during": true, "before": true, "after": true, "above": true, "below": true,
	"to": true, "from": true, "up": true, "down": true, "in": true, "out": true,
	"on": true, "off": true, "over": true, "under": true, "again": true,
	"further": true, "then": true, "once": true, "here": true, "there": true,
	"when": true, "where": true, "why": true, "how": true, "all": true,
	"any": true, "both": true, "each": true, "few": true, "more": true,
	"most": true, "other": true, "some": true, "such": true, "no": true,
	"nor": true, "not": true, "only": true, "own": true, "same": true,
	"so": true, "than": true, "too": true, "very": true, "s": true, "t": true,
	"can": true, "will": true, "just": true, "don": true, "should": true,
	"now": true,
}

var punctuation = regexp.MustCompile(`[,;]`)

func wordHashes(text string) map[uint64]int {
	cleaned := punctuation.ReplaceAllString(text, "")

	counts := make(map[uint64]int)
	for _, word := range strings.Fields(cleaned) {
		lower := strings.ToLower(word)
		if stopWords[lower] {
			continue
		}
		h := hashSeed([]byte(lower), 0)
		counts[h]++
	}
	return counts
}

// SimHash computes a 64-bit locality-sensitive fingerprint of text:
// similar documents produce fingerprints with a small Hamming distance.
func SimHash(text string) uint64 {
	counts := wordHashes(text)

	var result uint64
	for bit := 0; bit < 64; bit++ {
		var sum int
		for hash, count := range counts {
			if (hash>>uint(bit))&1 == 1 {
				sum += count
			} else {
				sum -= count
			}
		}
		if sum > 0 {
			result |= 1 << uint(bit)
		}
	}
	return result
}

// HammingDistance returns the number of differing bits between the
// SimHash fingerprints of a and b.
func HammingDistance(a, b string) uint8 {
	return uint8(bits.OnesCount64(SimHash(a) ^ SimHash(b)))
}
