// Package spam detects near-duplicate message content posted by one user
// across multiple channels. Detection is a pure function over a history
// snapshot: it never mutates state, so callers can run it against a copied
// view without holding locks.
package spam

import (
	"strings"

	"github.com/amcommunity/warden/internal/history"
)

// Config holds the detection thresholds. All comparisons are inclusive.
type Config struct {
	// SimilarityThreshold is the minimum content similarity ratio, in
	// [0, 1], for a history record to count as a duplicate.
	SimilarityThreshold float64
	// ChannelThreshold is the number of distinct channels (including the
	// candidate's own) carrying duplicates that triggers detection.
	ChannelThreshold int
	// MinMessageLength skips short messages ("lol", "ok") that would
	// otherwise produce false positives.
	MinMessageLength int
}

// IsCrossChannelSpam reports whether the candidate message, posted in
// channelID, is a near-duplicate of the user's history records in enough
// distinct other channels to cross the channel threshold.
//
// Multiple matching records from the same channel count that channel once:
// channel diversity, not match count, drives the threshold.
func IsCrossChannelSpam(hist []history.Record, content, channelID string, cfg Config) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	if len([]rune(content)) < cfg.MinMessageLength {
		return false
	}
	if len(hist) == 0 {
		return false
	}

	candidate := []rune(strings.ToLower(content))

	matched := make(map[string]struct{})
	for _, rec := range hist {
		if rec.ChannelID == channelID {
			continue
		}
		recContent := []rune(rec.Content)
		if len(recContent) == 0 {
			continue
		}
		// Cheap rejection: very different lengths cannot be similar.
		lenRatio := float64(len(candidate)) / float64(len(recContent))
		if lenRatio < 0.5 || lenRatio > 2.0 {
			continue
		}
		if similarity(candidate, recContent) >= cfg.SimilarityThreshold {
			matched[rec.ChannelID] = struct{}{}
		}
	}

	// The candidate's own channel counts toward the total.
	return len(matched)+1 >= cfg.ChannelThreshold
}

// Ratio returns the similarity of two strings in [0, 1], computed as
// 2*M/T where M is the length of their longest common subsequence and T
// the combined length. Inputs are compared as-is; callers normalize case.
func Ratio(a, b string) float64 {
	return similarity([]rune(a), []rune(b))
}

func similarity(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(lcsLength(a, b)) / float64(total)
}

// lcsLength computes the longest-common-subsequence length with a two-row
// table. Inputs are capped at the stored-content limit, so the quadratic
// cost stays small.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
