// Package tokens approximates LLM token counts for skill content without
// calling a real tokenizer. The estimates feed the progressive-disclosure
// size tiers: brief metadata (layer 1) is budgeted separately from full
// instructions (layer 2).
package tokens

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Progressive-disclosure ceilings, in estimated tokens.
const (
	Layer1Limit = 100
	Layer2Limit = 5000
)

// layer1Overhead accounts for the structural YAML markers around a skill's
// name and description when rendered into a prompt.
const layer1Overhead = 5

// Count estimates the token count of text by blending a character-based
// estimate (4 chars per token) with a word-based one (1.3 tokens per word)
// and averaging the two. There is no ground truth here; callers should rely
// on relative comparisons, not exact values.
func Count(text string) int {
	if text == "" {
		return 0
	}
	charEstimate := math.Ceil(float64(utf8.RuneCountInString(text)) / 4)
	wordEstimate := math.Ceil(float64(len(strings.Fields(text))) * 1.3)
	return int(math.Round((charEstimate + wordEstimate) / 2))
}

// CountLayer1 estimates the metadata-tier cost of a skill: its name and
// description as they appear in a catalog listing, plus fixed overhead.
func CountLayer1(name, description string) int {
	return Count(fmt.Sprintf("name: %s\ndescription: %s", name, description)) + layer1Overhead
}

// CountLayer2 estimates the full-content cost of a skill.
func CountLayer2(content string) int {
	return Count(content)
}

// DisclosureCheck reports whether each content tier fits its budget.
type DisclosureCheck struct {
	OK       bool     `json:"ok"`
	Layer1OK bool     `json:"layer1_ok"`
	Layer2OK bool     `json:"layer2_ok"`
	Warnings []string `json:"warnings,omitempty"`
}

// CheckProgressiveDisclosure compares layer estimates against their
// ceilings, producing one warning per layer over budget.
func CheckProgressiveDisclosure(layer1, layer2 int) DisclosureCheck {
	check := DisclosureCheck{
		Layer1OK: layer1 <= Layer1Limit,
		Layer2OK: layer2 <= Layer2Limit,
	}
	check.OK = check.Layer1OK && check.Layer2OK
	if !check.Layer1OK {
		check.Warnings = append(check.Warnings,
			fmt.Sprintf("layer 1 metadata is ~%d tokens, over the %d token budget - shorten the name or description", layer1, Layer1Limit))
	}
	if !check.Layer2OK {
		check.Warnings = append(check.Warnings,
			fmt.Sprintf("layer 2 content is ~%d tokens, over the %d token budget - split or trim the skill body", layer2, Layer2Limit))
	}
	return check
}
