package verification

import (
	"math"

	"certguard/internal/credential/models"
	"certguard/internal/extraction"
)

const (
	verifiedFloor = 96.0
	verifiedSpan  = 3.9
	forgedFloor   = 88.0
	forgedSpan    = 9.9
)

// verifiedConfidence grows with the share of secondary fields that agree
// with the record. Range [96, 99.9].
func verifiedConfidence(ext extraction.Result, rec models.CredentialRecord) float64 {
	return round1(verifiedFloor + verifiedSpan*fieldAgreement(ext, rec))
}

// forgedConfidence grows as the claimed name drifts from the issued one.
// Range (88, 97.9].
func forgedConfidence(expected, found string) float64 {
	return round1(forgedFloor + forgedSpan*(1-nameSimilarity(expected, found)))
}

func fieldAgreement(ext extraction.Result, rec models.CredentialRecord) float64 {
	pairs := [][2]string{
		{ext.Institution, rec.Institution},
		{ext.Course, rec.Course},
		{ext.Grade, rec.Grade},
		{ext.Type, rec.Type},
	}
	agree := 0
	for _, p := range pairs {
		if normalizeField(p[0]) == normalizeField(p[1]) {
			agree++
		}
	}
	if ext.YearOfPassing == rec.YearOfPassing {
		agree++
	}
	return float64(agree) / float64(len(pairs)+1)
}

// nameSimilarity is 1 - levenshtein(a,b)/max(len a, len b) over normalized names.
func nameSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
