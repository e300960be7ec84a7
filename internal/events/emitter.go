package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/pkg/queue"
)

// Club action names consumed by the worker.
const (
	ActionClubCreated    = "club_created"
	ActionModulesEnabled = "modules_enabled"
	ActionMemberInvited  = "member_invited"
	ActionEventCreated   = "event_created"
	ActionMemberJoined   = "member_joined"
)

// Emitter publishes club actions and outbound emails onto the worker queues.
// Emission is best effort: failures are logged and never propagated, so a
// queue outage cannot fail the request that triggered the event.
type Emitter struct {
	queue  *queue.Queue
	logger *zap.Logger
}

// NewEmitter creates an Emitter.
func NewEmitter(q *queue.Queue, logger *zap.Logger) *Emitter {
	return &Emitter{queue: q, logger: logger}
}

// Emit enqueues a club action job.
func (e *Emitter) Emit(ctx context.Context, clubID uuid.UUID, action string, data any) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			e.logger.Warn("failed to marshal club action data",
				zap.String("club_id", clubID.String()), zap.String("action", action), zap.Error(err))
			return
		}
		raw = b
	}
	err := e.queue.EnqueueClubAction(ctx, queue.ClubActionPayload{
		ClubID: clubID,
		Action: action,
		Data:   raw,
	})
	if err != nil {
		e.logger.Warn("failed to enqueue club action",
			zap.String("club_id", clubID.String()), zap.String("action", action), zap.Error(err))
	}
}

// EmitEmail enqueues an invitation email job.
func (e *Emitter) EmitEmail(ctx context.Context, p queue.EmailPayload) {
	if err := e.queue.EnqueueEmail(ctx, p); err != nil {
		e.logger.Warn("failed to enqueue invitation email",
			zap.String("club_id", p.ClubID.String()),
			zap.String("recipient", p.RecipientEmail), zap.Error(err))
	}
}
