package matching

import (
	"fmt"
	"strings"
)

// DescriptionAnalysis reports how effective a description is likely to be
// at triggering correct matches, with concrete improvement suggestions.
type DescriptionAnalysis struct {
	ClarityScore    float64  `json:"clarity_score"`
	TriggerKeywords []string `json:"trigger_keywords,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
	TooBroad        bool     `json:"too_broad"`
	TooNarrow       bool     `json:"too_narrow"`
}

// Description length bounds in characters. Below the minimum a description
// carries too little signal to match on; above the maximum it dilutes its
// own keywords.
const (
	minDescriptionChars = 20
	maxDescriptionChars = 500
)

// actionWords signal an actionable description; their absence usually means
// the description states a topic rather than a capability.
var actionWords = []string{"use", "create", "build", "fix", "help", "manage", "handle", "process"}

// genericWords mark descriptions that claim to cover everything and so
// match nothing in particular.
var genericWords = []string{"anything", "everything", "all", "any", "general", "various"}

// AnalyzeDescription scores a skill description's clarity on [0,1] from a
// neutral 0.5 prior, applying independent additive adjustments for length,
// keyword density, action-word presence, and intended-trigger coverage.
// The TooBroad/TooNarrow flags are computed separately and do not feed the
// score.
func AnalyzeDescription(description string, intendedTriggers []string) DescriptionAnalysis {
	analysis := DescriptionAnalysis{ClarityScore: 0.5}
	descLower := strings.ToLower(description)
	keywords := ExtractKeywords(description)
	analysis.TriggerKeywords = keywords

	switch {
	case len(description) < minDescriptionChars:
		analysis.ClarityScore -= 0.2
		analysis.Suggestions = append(analysis.Suggestions,
			fmt.Sprintf("Description is too short (%d chars) - aim for at least %d characters", len(description), minDescriptionChars))
	case len(description) > maxDescriptionChars:
		analysis.ClarityScore -= 0.1
		analysis.Suggestions = append(analysis.Suggestions,
			fmt.Sprintf("Description is too long (%d chars) - keep it under %d characters", len(description), maxDescriptionChars))
	default:
		analysis.ClarityScore += 0.1
	}

	switch {
	case len(keywords) < 3:
		analysis.ClarityScore -= 0.1
		analysis.Suggestions = append(analysis.Suggestions,
			"Add more distinguishing keywords so task descriptions can match this skill")
	case len(keywords) >= 5:
		analysis.ClarityScore += 0.2
	}

	if containsAny(descLower, actionWords) {
		analysis.ClarityScore += 0.1
	} else {
		analysis.Suggestions = append(analysis.Suggestions,
			"Add action words (e.g. create, manage, fix) to describe what the skill does")
	}

	if len(intendedTriggers) > 0 {
		var covered int
		for _, trigger := range intendedTriggers {
			if strings.Contains(descLower, strings.ToLower(trigger)) {
				covered++
			}
		}
		coverage := float64(covered) / float64(len(intendedTriggers))
		if coverage < 0.5 {
			analysis.Suggestions = append(analysis.Suggestions,
				fmt.Sprintf("Description covers only %.0f%% of intended triggers - mention the phrases that should activate this skill", coverage*100))
		}
		analysis.ClarityScore += coverage * 0.2
	}

	analysis.ClarityScore = clamp01(analysis.ClarityScore)

	if containsAny(descLower, genericWords) {
		analysis.TooBroad = true
		analysis.Suggestions = append(analysis.Suggestions,
			"Description uses generic wording - narrow it to the specific tasks this skill handles")
	}
	if len(keywords) < 3 && len(description) < 50 {
		analysis.TooNarrow = true
		analysis.Suggestions = append(analysis.Suggestions,
			"Description is narrow - broaden it with the contexts where this skill applies")
	}

	return analysis
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
