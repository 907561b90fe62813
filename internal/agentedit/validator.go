package agentedit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mnjoroge/rentdash/internal/domain"
)

// phonePattern accepts digits, spaces, plus, hyphen and parentheses. Formats
// vary too much across carriers to be stricter than this at submission time.
var phonePattern = regexp.MustCompile(`^[0-9+\-() ]+$`)

// Validator performs the purely local checks on a prospective batch: required
// fields, phone shape and in-batch duplicates. It never touches persistence
// and never mutates its input, so it is safe to call repeatedly while the
// operator is still editing.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// FilterNoOps drops edits that change neither name nor phone. The returned
// slice is freshly allocated.
func FilterNoOps(edits []domain.ProposedEdit) []domain.ProposedEdit {
	kept := make([]domain.ProposedEdit, 0, len(edits))
	for _, edit := range edits {
		if edit.IsNoOp() {
			continue
		}
		kept = append(kept, edit)
	}
	return kept
}

// Validate evaluates every rule over the whole batch and returns the merged
// per-agent errors, or nil when the batch is clean.
func (v *Validator) Validate(edits []domain.ProposedEdit) []domain.ValidationError {
	collector := newErrorCollector()

	byName := map[string][]domain.ProposedEdit{}
	byPhone := map[string][]domain.ProposedEdit{}

	for _, edit := range edits {
		name := strings.TrimSpace(edit.NewName)
		phone := strings.TrimSpace(edit.NewPhone)

		if name == "" {
			collector.add(edit.AgentID, edit.OriginalName, "name is required")
		}
		if phone == "" {
			collector.add(edit.AgentID, edit.OriginalName, "phone is required")
		} else if !phonePattern.MatchString(phone) {
			collector.add(edit.AgentID, edit.OriginalName, "phone may only contain digits, spaces, +, - and parentheses")
		}

		if name != "" {
			key := strings.ToLower(name)
			byName[key] = append(byName[key], edit)
		}
		if phone != "" {
			byPhone[edit.NewPhone] = append(byPhone[edit.NewPhone], edit)
		}
	}

	for _, group := range byName {
		if len(group) < 2 {
			continue
		}
		for _, edit := range group {
			collector.add(edit.AgentID, edit.OriginalName,
				fmt.Sprintf("name %q is assigned to more than one agent in this batch", edit.NewName))
		}
	}

	for _, group := range byPhone {
		if len(group) < 2 {
			continue
		}
		for _, edit := range group {
			collector.add(edit.AgentID, edit.OriginalName,
				fmt.Sprintf("phone %q is assigned to more than one agent in this batch", edit.NewPhone))
		}
	}

	return collector.list()
}
