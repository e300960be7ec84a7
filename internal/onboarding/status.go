package onboarding

import "math"

// Raw holds the milestone fields of the onboarding blob as they are stored.
// Flags are monotonic: they go from false to true and stay there.
type Raw struct {
	CreatedClub    bool     `json:"created_club"`
	EnabledModules []string `json:"enabled_modules"`
	InvitedMember  bool     `json:"invited_member"`
	CreatedEvent   bool     `json:"created_event"`
}

// Status is the enriched onboarding state returned to clients and persisted
// alongside the raw fields. Derived fields are never trusted from storage,
// they are recomputed from Raw on every read and write.
type Status struct {
	Raw
	CompletedSteps       int              `json:"completed_steps"`
	TotalSteps           int              `json:"total_steps"`
	CompletionPercentage int              `json:"completion_percentage"`
	IsComplete           bool             `json:"is_complete"`
	NextSteps            []StepDescriptor `json:"next_steps"`
}

func (r Raw) stepDone(key string) bool {
	switch key {
	case StepCreatedClub:
		return r.CreatedClub
	case StepEnabledModules:
		return len(r.EnabledModules) > 0
	case StepInvitedMember:
		return r.InvitedMember
	case StepCreatedEvent:
		return r.CreatedEvent
	}
	return false
}

// Enrich computes the derived status from raw milestone fields.
func Enrich(raw Raw) Status {
	st := Status{
		Raw:        raw,
		TotalSteps: len(catalog),
		NextSteps:  []StepDescriptor{},
	}
	var doneWeight, totalWeight int
	for _, step := range catalog {
		totalWeight += step.Weight
		if raw.stepDone(step.ID) {
			st.CompletedSteps++
			doneWeight += step.Weight
		} else {
			st.NextSteps = append(st.NextSteps, step)
		}
	}
	if totalWeight > 0 {
		st.CompletionPercentage = int(math.Round(float64(doneWeight) / float64(totalWeight) * 100))
	}
	st.IsComplete = st.CompletedSteps == st.TotalSteps
	return st
}
