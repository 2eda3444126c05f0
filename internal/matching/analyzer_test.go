package matching

import (
	"strings"
	"testing"
)

func TestAnalyzeDescriptionVague(t *testing.T) {
	analysis := AnalyzeDescription("Do stuff", nil)

	if analysis.ClarityScore >= 0.5 {
		t.Errorf("clarity = %v, want < 0.5 for a vague description", analysis.ClarityScore)
	}
	if len(analysis.Suggestions) == 0 {
		t.Error("expected suggestions for a vague description")
	}
	if !analysis.TooNarrow {
		t.Error("short, keyword-poor description should be flagged too narrow")
	}
}

func TestAnalyzeDescriptionStrong(t *testing.T) {
	desc := "Manage git repositories: create branches, handle merges, process pull requests and fix conflicts across multiple remotes"
	analysis := AnalyzeDescription(desc, nil)

	if analysis.ClarityScore < 0.8 {
		t.Errorf("clarity = %v, want >= 0.8 for a strong description", analysis.ClarityScore)
	}
	if analysis.TooBroad || analysis.TooNarrow {
		t.Errorf("strong description flagged: broad=%v narrow=%v", analysis.TooBroad, analysis.TooNarrow)
	}
	if len(analysis.TriggerKeywords) < 5 {
		t.Errorf("got %d trigger keywords, want >= 5", len(analysis.TriggerKeywords))
	}
}

func TestAnalyzeDescriptionLength(t *testing.T) {
	short := AnalyzeDescription("Fix bugs", nil)
	long := AnalyzeDescription(strings.Repeat("manage deployment pipelines and container orchestration ", 20), nil)

	if short.ClarityScore >= long.ClarityScore {
		// The short penalty (-0.2) is harsher than the long one (-0.1).
		t.Errorf("short (%v) should score below long (%v)", short.ClarityScore, long.ClarityScore)
	}
	foundLong := false
	for _, s := range long.Suggestions {
		if strings.Contains(s, "too long") {
			foundLong = true
		}
	}
	if !foundLong {
		t.Error("expected a too-long suggestion")
	}
}

func TestAnalyzeDescriptionActionWords(t *testing.T) {
	with := AnalyzeDescription("Create and manage database schema migrations safely", nil)
	without := AnalyzeDescription("Database schema migration knowledge reference material", nil)

	if with.ClarityScore <= without.ClarityScore {
		t.Errorf("action words should raise clarity: with=%v without=%v", with.ClarityScore, without.ClarityScore)
	}
	found := false
	for _, s := range without.Suggestions {
		if strings.Contains(s, "action words") {
			found = true
		}
	}
	if !found {
		t.Error("expected an action-word suggestion")
	}
}

func TestAnalyzeDescriptionTriggerCoverage(t *testing.T) {
	desc := "Manage git repositories and handle branch merges"

	full := AnalyzeDescription(desc, []string{"git", "branch"})
	none := AnalyzeDescription(desc, []string{"terraform", "kubernetes"})

	if full.ClarityScore <= none.ClarityScore {
		t.Errorf("full coverage (%v) should score above zero coverage (%v)", full.ClarityScore, none.ClarityScore)
	}

	found := false
	for _, s := range none.Suggestions {
		if strings.Contains(s, "0%") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a coverage suggestion citing the percentage, got %v", none.Suggestions)
	}

	// Coverage contributes to the score even when the 50% warning fires.
	partial := AnalyzeDescription(desc, []string{"git", "terraform", "kubernetes", "ansible"})
	if partial.ClarityScore <= none.ClarityScore {
		t.Errorf("partial coverage (%v) should score above zero coverage (%v)", partial.ClarityScore, none.ClarityScore)
	}
}

func TestAnalyzeDescriptionTooBroad(t *testing.T) {
	analysis := AnalyzeDescription("Handles anything related to software development in general", nil)
	if !analysis.TooBroad {
		t.Error("generic wording should be flagged too broad")
	}

	focused := AnalyzeDescription("Create terraform modules and manage cloud infrastructure state", nil)
	if focused.TooBroad {
		t.Error("focused description flagged too broad")
	}
}

func TestAnalyzeDescriptionScoreClamped(t *testing.T) {
	// Everything positive at once: in-bounds length, dense keywords, action
	// words, full trigger coverage.
	desc := "Create, manage and process deployment pipelines, container images, orchestration manifests and rollback procedures"
	analysis := AnalyzeDescription(desc, []string{"deployment", "container"})
	if analysis.ClarityScore > 1.0 {
		t.Errorf("clarity %v exceeds 1.0", analysis.ClarityScore)
	}

	empty := AnalyzeDescription("", nil)
	if empty.ClarityScore < 0 {
		t.Errorf("clarity %v below 0", empty.ClarityScore)
	}
}
