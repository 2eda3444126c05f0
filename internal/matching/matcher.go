package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lorekeep/skillforge/internal/skill"
)

// Match is one scored task-to-skill pairing. Produced per query, never stored.
type Match struct {
	SkillID     string   `json:"skill_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	TriggeredBy []string `json:"triggered_by,omitempty"`
}

// Scoring weights. Name evidence dominates: an exact name mention is worth
// more than perfect description overlap. Tag membership is the weakest
// signal. The component sum can exceed 1.0 and is clamped, not renormalized.
const (
	weightNameExact   = 0.5  // skill name appears verbatim in the task
	weightNameTokens  = 0.3  // every name token appears among task tokens
	weightDescOverlap = 0.25 // Jaccard over description vs task tokens
	weightKeyword     = 0.15 // task keywords found in description or tags
	weightTag         = 0.1  // skill tags appearing verbatim as task tokens
)

// DefaultMinConfidence filters out noise matches when the caller does not
// supply a threshold.
const DefaultMinConfidence = 0.3

// MatchSkills scores a task description against each active skill and
// returns the matches at or above minConfidence, highest confidence first.
// Out-of-range thresholds are clamped to [0,1] rather than rejected.
// Deprecated skills never match regardless of score.
func MatchSkills(task string, skills []*skill.Metadata, minConfidence float64) []Match {
	minConfidence = clamp01(minConfidence)

	taskLower := strings.ToLower(task)
	taskNorm := normalizeSeparators(taskLower)
	taskTokens := Tokenize(task)
	taskTokenSet := tokenSet(taskTokens)
	taskKeywords := ExtractKeywords(task)

	var matches []Match
	for _, s := range skills {
		if !s.Active() {
			continue
		}

		score := scoreName(taskLower, taskNorm, taskTokenSet, s.Name)
		score += weightDescOverlap * jaccard(taskTokenSet, tokenSet(Tokenize(s.Description)))
		score += weightKeyword * keywordFraction(taskKeywords, s)
		score += weightTag * tagFraction(s.Tags, taskTokenSet)
		score = clamp01(score)

		if score < minConfidence {
			continue
		}
		matches = append(matches, Match{
			SkillID:     s.ID,
			Name:        s.Name,
			Description: s.Description,
			Confidence:  score,
			TriggeredBy: triggerReasons(taskTokens, taskKeywords, taskTokenSet, s),
		})
	}

	// Ties break on skill ID so equal-confidence output does not depend on
	// catalog iteration order.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].SkillID < matches[j].SkillID
	})
	return matches
}

// normalizeSeparators folds hyphens and underscores into spaces so a skill
// named "git-workflow" matches a task mentioning "git workflow".
func normalizeSeparators(s string) string {
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}

// scoreName awards the name component. A verbatim substring mention earns
// the full weight. Failing that, partial credit: all name tokens present
// among task tokens earns a reduced weight, and at least half earns that
// weight scaled by the fraction matched. Multi-word skill names are often
// only paraphrased in task text, which is what the fallback captures.
func scoreName(taskLower, taskNorm string, taskTokenSet map[string]struct{}, name string) float64 {
	nameLower := strings.ToLower(name)
	nameNorm := normalizeSeparators(nameLower)

	if nameNorm != "" && taskNorm != "" &&
		(strings.Contains(taskNorm, nameNorm) || strings.Contains(taskLower, nameLower)) {
		return weightNameExact
	}

	nameTokens := Tokenize(name)
	if len(nameTokens) == 0 {
		return 0
	}
	var matched int
	for _, t := range nameTokens {
		if _, ok := taskTokenSet[t]; ok {
			matched++
		}
	}
	fraction := float64(matched) / float64(len(nameTokens))
	switch {
	case matched == len(nameTokens):
		return weightNameTokens
	case fraction >= 0.5:
		return weightNameTokens * fraction
	default:
		return 0
	}
}

// keywordFraction reports what share of the task's keywords occur as
// substrings anywhere in the skill's description or tags. Substring rather
// than word-boundary matching is intentional and load-bearing: it lets
// "deploy" hit "deployment", at the cost of "log" hitting "catalog".
func keywordFraction(taskKeywords []string, s *skill.Metadata) float64 {
	if len(taskKeywords) == 0 {
		return 0
	}
	haystack := strings.ToLower(s.Description + " " + strings.Join(s.Tags, " "))
	var matched int
	for _, k := range taskKeywords {
		if strings.Contains(haystack, k) {
			matched++
		}
	}
	return float64(matched) / float64(len(taskKeywords))
}

// tagFraction reports what share of the skill's tags appear verbatim among
// the task's tokens.
func tagFraction(tags []string, taskTokenSet map[string]struct{}) float64 {
	if len(tags) == 0 {
		return 0
	}
	var matched int
	for _, t := range tags {
		if _, ok := taskTokenSet[strings.ToLower(t)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tags))
}

// triggerReasons builds the human-readable explanation list for a match:
// one entry per satisfied signal, deduplicated, in signal order.
func triggerReasons(taskTokens, taskKeywords []string, taskTokenSet map[string]struct{}, s *skill.Metadata) []string {
	var reasons []string
	seen := make(map[string]struct{})
	add := func(r string) {
		if _, dup := seen[r]; dup {
			return
		}
		seen[r] = struct{}{}
		reasons = append(reasons, r)
	}

	nameLower := strings.ToLower(s.Name)
	for _, t := range taskTokens {
		if strings.Contains(nameLower, t) {
			add(fmt.Sprintf("name: %s", s.Name))
			break
		}
	}

	descLower := strings.ToLower(s.Description)
	for _, k := range taskKeywords {
		if strings.Contains(descLower, k) {
			add(fmt.Sprintf("keyword: %s", k))
		}
	}

	for _, t := range s.Tags {
		if _, ok := taskTokenSet[strings.ToLower(t)]; ok {
			add(fmt.Sprintf("tag: %s", t))
		}
	}
	return reasons
}
