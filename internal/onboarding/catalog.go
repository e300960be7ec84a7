package onboarding

// Step keys. These are the raw field names in the stored status blob.
const (
	StepCreatedClub    = "created_club"
	StepEnabledModules = "enabled_modules"
	StepInvitedMember  = "invited_member"
	StepCreatedEvent   = "created_event"
)

// StepDescriptor describes one onboarding step in the static catalog.
type StepDescriptor struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Weight      int    `json:"weight"`
}

// catalog is the ordered step catalog. Order matters: next_steps and the
// completion percentage are derived from it.
var catalog = []StepDescriptor{
	{
		ID:          StepCreatedClub,
		Label:       "Create Your Club",
		Description: "Set up your club with basic information",
		Required:    true,
		Weight:      1,
	},
	{
		ID:          StepEnabledModules,
		Label:       "Enable Features",
		Description: "Choose which features your club will use",
		Required:    true,
		Weight:      1,
	},
	{
		ID:          StepInvitedMember,
		Label:       "Invite Members",
		Description: "Send invitations to your first members",
		Required:    false,
		Weight:      1,
	},
	{
		ID:          StepCreatedEvent,
		Label:       "Create First Event",
		Description: "Schedule your club's first event",
		Required:    false,
		Weight:      1,
	},
}

// Steps returns the step catalog in order.
func Steps() []StepDescriptor {
	out := make([]StepDescriptor, len(catalog))
	copy(out, catalog)
	return out
}

// KnownStep reports whether the key names a catalog step.
func KnownStep(key string) bool {
	for _, s := range catalog {
		if s.ID == key {
			return true
		}
	}
	return false
}
