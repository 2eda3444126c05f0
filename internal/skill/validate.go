package skill

import (
	"fmt"
	"strings"
)

// Input size caps enforced before any matching or storage work happens.
// The matching engine itself is total over its inputs; these limits exist
// so callers can't feed it unbounded text.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1024
	MaxContentLength     = 20000
	MaxTaskLength        = 4000
	MaxTags              = 20
)

// ValidateDraft checks a submitted skill definition for structural problems.
// Content-quality concerns (vague descriptions, overlap with existing skills)
// are handled elsewhere; this only rejects requests the system cannot store.
func ValidateDraft(d *Draft) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return fmt.Errorf("skill name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("skill name exceeds %d characters", MaxNameLength)
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("skill description is required")
	}
	if len(d.Description) > MaxDescriptionLength {
		return fmt.Errorf("skill description exceeds %d characters", MaxDescriptionLength)
	}
	if len(d.Content) > MaxContentLength {
		return fmt.Errorf("skill content exceeds %d characters", MaxContentLength)
	}
	if len(d.Tags) > MaxTags {
		return fmt.Errorf("too many tags: %d (max %d)", len(d.Tags), MaxTags)
	}
	for _, t := range d.Tags {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("empty tag")
		}
	}
	return nil
}

// ValidateTask checks a task description before it reaches the matcher.
func ValidateTask(task string) error {
	if strings.TrimSpace(task) == "" {
		return fmt.Errorf("task description is required")
	}
	if len(task) > MaxTaskLength {
		return fmt.Errorf("task description exceeds %d characters", MaxTaskLength)
	}
	return nil
}
