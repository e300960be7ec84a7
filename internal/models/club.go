package models

import (
	"time"

	"github.com/google/uuid"
)

// Club types accepted on create/update.
const (
	ClubTypeSports       = "sports"
	ClubTypeScouts       = "scouts"
	ClubTypeHobby        = "hobby"
	ClubTypeEducational  = "educational"
	ClubTypeSocial       = "social"
	ClubTypeVolunteer    = "volunteer"
	ClubTypeProfessional = "professional"
	ClubTypeOther        = "other"
)

// ClubTypes lists all valid club types.
var ClubTypes = []string{
	ClubTypeSports, ClubTypeScouts, ClubTypeHobby, ClubTypeEducational,
	ClubTypeSocial, ClubTypeVolunteer, ClubTypeProfessional, ClubTypeOther,
}

// Feature modules a club can enable.
const (
	ModuleEvents           = "events"
	ModuleInventory        = "inventory"
	ModulePayments         = "payments"
	ModuleCommunications   = "communications"
	ModuleMemberManagement = "member_management"
	ModuleReports          = "reports"
	ModuleDocuments        = "documents"
)

// AvailableModules lists all enableable feature modules.
var AvailableModules = []string{
	ModuleEvents, ModuleInventory, ModulePayments, ModuleCommunications,
	ModuleMemberManagement, ModuleReports, ModuleDocuments,
}

// Club name/description length limits.
const (
	ClubNameMinLen        = 2
	ClubNameMaxLen        = 100
	ClubDescriptionMaxLen = 500
)

// Club represents a club record. The onboarding status blob lives on the same
// row but is owned and accessed by the onboarding package.
type Club struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Description    string     `json:"description,omitempty"`
	LogoURL        string     `json:"logo_url,omitempty"`
	CreatorID      uuid.UUID  `json:"creator_id"`
	EnabledModules []string   `json:"enabled_modules"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ValidClubType reports whether t is an accepted club type.
func ValidClubType(t string) bool {
	for _, v := range ClubTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ValidModule reports whether m is an enableable module.
func ValidModule(m string) bool {
	for _, v := range AvailableModules {
		if v == m {
			return true
		}
	}
	return false
}
