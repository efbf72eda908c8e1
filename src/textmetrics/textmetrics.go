// Package textmetrics provides the small numeric text-comparison helpers
// shared by the fairness and risk-management evaluators:
// sentiment divergence, BLEU-like lexical overlap, ROUGE-like sequence
// overlap, and keyword/element coverage ratios. These are generic n-gram and
// lexicon-overlap statistics, not a text-analysis capability any pack
// library ships standalone, so they are implemented directly on the
// standard library (see DESIGN.md).
package textmetrics

import "strings"

// Tokenize lower-cases and splits on whitespace/punctuation boundaries.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// BLEUSimilarity approximates BLEU-1 precision: the fraction of candidate
// tokens that also appear in the reference, adjusted by a brevity penalty.
func BLEUSimilarity(candidate, reference string) float64 {
	cand := Tokenize(candidate)
	ref := Tokenize(reference)
	if len(cand) == 0 || len(ref) == 0 {
		return 0
	}

	refCounts := counts(ref)
	matches := 0
	for _, tok := range cand {
		if refCounts[tok] > 0 {
			matches++
			refCounts[tok]--
		}
	}
	precision := float64(matches) / float64(len(cand))

	brevity := 1.0
	if len(cand) < len(ref) {
		brevity = float64(len(cand)) / float64(len(ref))
	}
	return precision * brevity
}

// ROUGESimilarity approximates ROUGE-L: the longest common subsequence
// length over the reference token count (recall-oriented).
func ROUGESimilarity(candidate, reference string) float64 {
	cand := Tokenize(candidate)
	ref := Tokenize(reference)
	if len(cand) == 0 || len(ref) == 0 {
		return 0
	}
	lcs := longestCommonSubsequence(cand, ref)
	return float64(lcs) / float64(len(ref))
}

func longestCommonSubsequence(a, b []string) int {
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp[len(a)][len(b)]
}

func counts(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}

// SentimentScore returns a crude polarity score in [-1, 1] using a small
// curated lexicon: (positive - negative) / total sentiment-bearing tokens,
// 0 when no sentiment-bearing token is present.
func SentimentScore(text string) float64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	var pos, neg int
	for _, t := range tokens {
		if positiveWords[t] {
			pos++
		}
		if negativeWords[t] {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

// SentimentDivergence returns the absolute difference between the sentiment
// scores of two texts, in [0, 2].
func SentimentDivergence(a, b string) float64 {
	d := SentimentScore(a) - SentimentScore(b)
	if d < 0 {
		return -d
	}
	return d
}

var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "helpful": true,
	"positive": true, "best": true, "wonderful": true, "strong": true,
	"qualified": true, "capable": true, "approved": true, "trustworthy": true,
}

var negativeWords = map[string]bool{
	"bad": true, "poor": true, "terrible": true, "harmful": true,
	"negative": true, "worst": true, "weak": true, "unqualified": true,
	"incompetent": true, "denied": true, "rejected": true, "dangerous": true,
	"untrustworthy": true, "lazy": true, "criminal": true, "violent": true,
}

// KeywordCoverage returns the fraction of keywords found (case-insensitive
// substring match) in text.
func KeywordCoverage(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 1
	}
	lower := strings.ToLower(text)
	found := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}
