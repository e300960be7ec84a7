package onboarding

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps blobs in memory and merges patches the way the jsonb
// concatenation does: top-level keys from the patch replace existing ones.
type fakeStore struct {
	blobs map[uuid.UUID]map[string]json.RawMessage
}

func newFakeStore(clubIDs ...uuid.UUID) *fakeStore {
	s := &fakeStore{blobs: make(map[uuid.UUID]map[string]json.RawMessage)}
	for _, id := range clubIDs {
		s.blobs[id] = map[string]json.RawMessage{}
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, clubID uuid.UUID) (json.RawMessage, error) {
	blob, ok := s.blobs[clubID]
	if !ok {
		return nil, ErrClubNotFound
	}
	out, err := json.Marshal(blob)
	return out, err
}

func (s *fakeStore) Merge(_ context.Context, clubID uuid.UUID, patch any) (json.RawMessage, error) {
	blob, ok := s.blobs[clubID]
	if !ok {
		return nil, ErrClubNotFound
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		blob[k] = v
	}
	return json.Marshal(blob)
}

func (s *fakeStore) Set(_ context.Context, clubID uuid.UUID, v any) error {
	if _, ok := s.blobs[clubID]; !ok {
		return ErrClubNotFound
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return err
	}
	s.blobs[clubID] = fields
	return nil
}

func TestInitializeAndGetStatus(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, clubID, []string{"events", "payments"})
	require.NoError(t, err)

	st, err := svc.GetStatus(ctx, clubID)
	require.NoError(t, err)
	require.True(t, st.CreatedClub)
	require.Equal(t, []string{"events", "payments"}, st.EnabledModules)
	require.Equal(t, 2, st.CompletedSteps)
	require.Equal(t, 4, st.TotalSteps)
	require.Equal(t, 50, st.CompletionPercentage)
	require.False(t, st.IsComplete)
	require.Len(t, st.NextSteps, 2)
	require.Equal(t, StepInvitedMember, st.NextSteps[0].ID)
	require.Equal(t, StepCreatedEvent, st.NextSteps[1].ID)
}

func TestInitializeWithoutModules(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)

	st, err := svc.Initialize(context.Background(), clubID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, st.CompletedSteps)
	require.Equal(t, 25, st.CompletionPercentage)
	require.Equal(t, StepEnabledModules, st.NextSteps[0].ID)
}

func TestGetStatusUnknownClub(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	_, err := svc.GetStatus(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrClubNotFound)
}

func TestAutoUpdateAdvancesMilestones(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, clubID, []string{"events"})
	require.NoError(t, err)

	require.NoError(t, svc.AutoUpdate(ctx, clubID, "member_invited", nil))
	st, err := svc.GetStatus(ctx, clubID)
	require.NoError(t, err)
	require.True(t, st.InvitedMember)
	require.Equal(t, 3, st.CompletedSteps)
	require.Equal(t, 75, st.CompletionPercentage)

	require.NoError(t, svc.AutoUpdate(ctx, clubID, "event_created", nil))
	st, err = svc.GetStatus(ctx, clubID)
	require.NoError(t, err)
	require.True(t, st.IsComplete)
	require.Equal(t, 100, st.CompletionPercentage)
	require.Empty(t, st.NextSteps)
}

func TestAutoUpdateIdempotent(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)
	ctx := context.Background()

	require.NoError(t, svc.AutoUpdate(ctx, clubID, "member_invited", nil))
	require.NoError(t, svc.AutoUpdate(ctx, clubID, "member_invited", nil))

	st, err := svc.GetStatus(ctx, clubID)
	require.NoError(t, err)
	require.True(t, st.InvitedMember)
	require.Equal(t, 1, st.CompletedSteps)
}

func TestAutoUpdateModulesEnabled(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)
	ctx := context.Background()

	data, _ := json.Marshal(map[string]any{"modules": []string{"events", "reports"}})
	require.NoError(t, svc.AutoUpdate(ctx, clubID, "modules_enabled", data))

	st, err := svc.GetStatus(ctx, clubID)
	require.NoError(t, err)
	require.Equal(t, []string{"events", "reports"}, st.EnabledModules)
}

func TestAutoUpdateMemberJoinedBackfillsInvite(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, clubID, []string{"events"})
	require.NoError(t, err)

	require.NoError(t, svc.AutoUpdate(ctx, clubID, "member_joined", nil))

	st, err := svc.GetStatus(ctx, clubID)
	require.NoError(t, err)
	require.True(t, st.InvitedMember)
	require.Equal(t, 3, st.CompletedSteps)
}

func TestAutoUpdateClubCreatedAppliesModules(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)
	ctx := context.Background()

	data, _ := json.Marshal(map[string]any{"enabled_modules": []string{"events"}})
	require.NoError(t, svc.AutoUpdate(ctx, clubID, "club_created", data))

	st, err := svc.GetStatus(ctx, clubID)
	require.NoError(t, err)
	require.True(t, st.CreatedClub)
	require.Equal(t, []string{"events"}, st.EnabledModules)
	require.Equal(t, 2, st.CompletedSteps)

	require.NoError(t, svc.AutoUpdate(ctx, clubID, "club_created", nil))
	st, err = svc.GetStatus(ctx, clubID)
	require.NoError(t, err)
	require.Equal(t, []string{"events"}, st.EnabledModules)
}

func TestAutoUpdateUnknownActionIgnored(t *testing.T) {
	clubID := uuid.New()
	store := newFakeStore(clubID)
	svc := NewService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.AutoUpdate(ctx, clubID, "something_else", nil))

	st, err := svc.GetStatus(ctx, clubID)
	require.NoError(t, err)
	require.Equal(t, 0, st.CompletedSteps)
}

func TestUpdateStep(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)
	ctx := context.Background()

	st, err := svc.UpdateStep(ctx, clubID, StepCreatedEvent, json.RawMessage(`true`))
	require.NoError(t, err)
	require.True(t, st.CreatedEvent)

	st, err = svc.UpdateStep(ctx, clubID, StepEnabledModules, json.RawMessage(`["events"]`))
	require.NoError(t, err)
	require.Equal(t, []string{"events"}, st.EnabledModules)
}

func TestUpdateStepUnknown(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)
	_, err := svc.UpdateStep(context.Background(), clubID, "made_up_step", json.RawMessage(`true`))
	require.ErrorIs(t, err, ErrUnknownStep)
}

func TestUpdateStepInvalidValue(t *testing.T) {
	clubID := uuid.New()
	svc := NewService(newFakeStore(clubID), nil)
	ctx := context.Background()

	_, err := svc.UpdateStep(ctx, clubID, StepCreatedEvent, json.RawMessage(`"yes"`))
	require.ErrorIs(t, err, ErrInvalidStepValue)

	_, err = svc.UpdateStep(ctx, clubID, StepEnabledModules, json.RawMessage(`true`))
	require.ErrorIs(t, err, ErrInvalidStepValue)
}

func TestEnrichWeights(t *testing.T) {
	st := Enrich(Raw{CreatedClub: true})
	require.Equal(t, 25, st.CompletionPercentage)
	require.Equal(t, 3, len(st.NextSteps))

	st = Enrich(Raw{})
	require.Equal(t, 0, st.CompletionPercentage)
	require.Equal(t, 4, len(st.NextSteps))
}
