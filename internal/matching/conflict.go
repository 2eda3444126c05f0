package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/lorekeep/skillforge/internal/skill"
)

// Conflict flags an existing skill that overlaps a candidate new skill
// closely enough to risk duplicate or ambiguous catalog entries.
type Conflict struct {
	ExistingSkillID   string   `json:"existing_skill_id"`
	ExistingSkillName string   `json:"existing_skill_name"`
	OverlapScore      float64  `json:"overlap_score"`
	SharedKeywords    []string `json:"shared_keywords,omitempty"`
	SharedTags        []string `json:"shared_tags,omitempty"`
	Recommendation    string   `json:"recommendation"`
}

// Overlap blending weights. Unlike match scoring, these sum to exactly 1.0:
// conflict detection is a true weighted average of the four similarity
// signals, so a perfect clone scores 1.0 without clamping.
const (
	overlapWeightDesc    = 0.4
	overlapWeightKeyword = 0.3
	overlapWeightTag     = 0.15
	overlapWeightName    = 0.15
)

// DefaultOverlapThreshold is the score at which two skills are considered
// in conflict.
const DefaultOverlapThreshold = 0.8

// Recommendation tiers.
const (
	recommendUpdate        = "Nearly identical to an existing skill - update the existing skill instead of creating a new one"
	recommendMerge         = "Significant overlap with an existing skill - consider merging them or differentiating their descriptions"
	recommendDifferentiate = "Noticeable overlap with an existing skill - ensure the two serve distinct purposes"
)

// DetectConflicts compares a candidate skill against every active existing
// skill and returns the ones whose blended overlap meets the threshold,
// highest overlap first. The threshold is clamped to [0,1].
func DetectConflicts(candidate *skill.Draft, existing []*skill.Metadata, threshold float64) []Conflict {
	threshold = clamp01(threshold)

	candDescTokens := tokenSet(Tokenize(candidate.Description))
	candKeywords := ExtractKeywords(candidate.Description)
	candKeywordSet := tokenSet(candKeywords)
	candTagSet := lowerSet(candidate.Tags)
	candNameTokens := tokenSet(Tokenize(candidate.Name))

	var conflicts []Conflict
	for _, s := range existing {
		if !s.Active() {
			continue
		}

		existKeywordSet := tokenSet(ExtractKeywords(s.Description))
		existTagSet := lowerSet(s.Tags)

		descOverlap := jaccard(candDescTokens, tokenSet(Tokenize(s.Description)))
		keywordOverlap := jaccard(candKeywordSet, existKeywordSet)
		nameOverlap := jaccard(candNameTokens, tokenSet(Tokenize(s.Name)))

		// Tag overlap only contributes when both skills are actually tagged;
		// an untagged pair says nothing about similarity.
		var tagOverlap float64
		if len(candTagSet) > 0 && len(existTagSet) > 0 {
			tagOverlap = jaccard(candTagSet, existTagSet)
		}

		score := overlapWeightDesc*descOverlap +
			overlapWeightKeyword*keywordOverlap +
			overlapWeightTag*tagOverlap +
			overlapWeightName*nameOverlap

		if score < threshold {
			continue
		}
		conflicts = append(conflicts, Conflict{
			ExistingSkillID:   s.ID,
			ExistingSkillName: s.Name,
			OverlapScore:      round2(score),
			SharedKeywords:    intersect(candKeywords, existKeywordSet),
			SharedTags:        sharedTags(candidate.Tags, existTagSet),
			Recommendation:    recommendFor(score),
		})
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].OverlapScore != conflicts[j].OverlapScore {
			return conflicts[i].OverlapScore > conflicts[j].OverlapScore
		}
		return conflicts[i].ExistingSkillID < conflicts[j].ExistingSkillID
	})
	return conflicts
}

func recommendFor(score float64) string {
	switch {
	case score >= 0.95:
		return recommendUpdate
	case score >= 0.90:
		return recommendMerge
	default:
		return recommendDifferentiate
	}
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it != "" {
			set[it] = struct{}{}
		}
	}
	return set
}

func sharedTags(tags []string, other map[string]struct{}) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range tags {
		lower := strings.ToLower(strings.TrimSpace(t))
		if _, ok := other[lower]; !ok {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
