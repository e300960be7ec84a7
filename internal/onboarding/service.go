package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrClubNotFound indicates the club row is absent.
	ErrClubNotFound = errors.New("club not found")
	// ErrUnknownStep indicates the step key is not in the catalog.
	ErrUnknownStep = errors.New("unknown onboarding step")
	// ErrInvalidStepValue indicates the value does not match the step's type.
	ErrInvalidStepValue = errors.New("invalid value for onboarding step")
)

// StatusStore persists the onboarding blob.
type StatusStore interface {
	Get(ctx context.Context, clubID uuid.UUID) (json.RawMessage, error)
	Merge(ctx context.Context, clubID uuid.UUID, patch any) (json.RawMessage, error)
	Set(ctx context.Context, clubID uuid.UUID, blob any) error
}

// Service tracks club onboarding progress.
type Service struct {
	store  StatusStore
	logger *zap.Logger
}

// NewService creates an onboarding service.
func NewService(store StatusStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

func decodeRaw(blob json.RawMessage) (Raw, error) {
	var raw Raw
	if len(blob) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(blob, &raw); err != nil {
		return raw, fmt.Errorf("decode onboarding status: %w", err)
	}
	return raw, nil
}

// GetStatus returns the enriched onboarding status for a club.
func (s *Service) GetStatus(ctx context.Context, clubID uuid.UUID) (*Status, error) {
	blob, err := s.store.Get(ctx, clubID)
	if err != nil {
		return nil, err
	}
	raw, err := decodeRaw(blob)
	if err != nil {
		return nil, err
	}
	st := Enrich(raw)
	return &st, nil
}

// Initialize seeds the blob at club creation: the club itself is created and
// the chosen modules are recorded; the other milestones start unset.
func (s *Service) Initialize(ctx context.Context, clubID uuid.UUID, enabledModules []string) (*Status, error) {
	if enabledModules == nil {
		enabledModules = []string{}
	}
	st := Enrich(Raw{CreatedClub: true, EnabledModules: enabledModules})
	if err := s.store.Set(ctx, clubID, st); err != nil {
		return nil, err
	}
	return &st, nil
}

// UpdateStep sets one milestone field explicitly and persists the re-enriched
// blob. The value must decode to the step's type: a JSON bool for flag steps,
// a JSON string array for enabled_modules.
func (s *Service) UpdateStep(ctx context.Context, clubID uuid.UUID, step string, value json.RawMessage) (*Status, error) {
	if !KnownStep(step) {
		return nil, ErrUnknownStep
	}
	blob, err := s.store.Get(ctx, clubID)
	if err != nil {
		return nil, err
	}
	raw, err := decodeRaw(blob)
	if err != nil {
		return nil, err
	}
	if err := applyStepValue(&raw, step, value); err != nil {
		return nil, err
	}
	st := Enrich(raw)
	if err := s.store.Set(ctx, clubID, st); err != nil {
		return nil, err
	}
	return &st, nil
}

func applyStepValue(raw *Raw, step string, value json.RawMessage) error {
	if step == StepEnabledModules {
		var modules []string
		if err := json.Unmarshal(value, &modules); err != nil {
			return ErrInvalidStepValue
		}
		raw.EnabledModules = modules
		return nil
	}
	var flag bool
	if err := json.Unmarshal(value, &flag); err != nil {
		return ErrInvalidStepValue
	}
	switch step {
	case StepCreatedClub:
		raw.CreatedClub = flag
	case StepInvitedMember:
		raw.InvitedMember = flag
	case StepCreatedEvent:
		raw.CreatedEvent = flag
	}
	return nil
}

// AutoUpdate advances a milestone in response to a club lifecycle action.
// The raw field is merged server-side so concurrent actions touching other
// fields are preserved; derived fields are recomputed from the merged result.
// Unknown actions are logged and ignored.
func (s *Service) AutoUpdate(ctx context.Context, clubID uuid.UUID, action string, data json.RawMessage) error {
	patch := map[string]any{}
	switch action {
	case "club_created":
		patch[StepCreatedClub] = true
		var payload struct {
			EnabledModules []string `json:"enabled_modules"`
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("decode club payload: %w", err)
			}
		}
		if len(payload.EnabledModules) > 0 {
			patch[StepEnabledModules] = payload.EnabledModules
		}
	case "modules_enabled":
		var payload struct {
			Modules []string `json:"modules"`
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("decode modules payload: %w", err)
			}
		}
		if len(payload.Modules) == 0 {
			return nil
		}
		patch[StepEnabledModules] = payload.Modules
	case "member_invited":
		patch[StepInvitedMember] = true
	case "event_created":
		patch[StepCreatedEvent] = true
	case "member_joined":
		// A join proves an invitation was extended, so it backfills the
		// invited_member milestone even when the invite-time job was lost.
		patch[StepInvitedMember] = true
	default:
		s.logger.Warn("ignoring unknown club action",
			zap.String("club_id", clubID.String()), zap.String("action", action))
		return nil
	}

	merged, err := s.store.Merge(ctx, clubID, patch)
	if err != nil {
		return err
	}
	raw, err := decodeRaw(merged)
	if err != nil {
		return err
	}
	st := Enrich(raw)
	_, err = s.store.Merge(ctx, clubID, map[string]any{
		"completed_steps":       st.CompletedSteps,
		"total_steps":           st.TotalSteps,
		"completion_percentage": st.CompletionPercentage,
		"is_complete":           st.IsComplete,
		"next_steps":            st.NextSteps,
	})
	return err
}
