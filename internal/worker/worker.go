package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/events"
	"github.com/clubhub/backend/internal/onboarding"
	"github.com/clubhub/backend/internal/realtime"
	"github.com/clubhub/backend/pkg/queue"
)

// ClubEventProcessor consumes club action and email jobs: it advances the
// onboarding milestones for the club and fans the event out to connected
// clients. Email jobs go to a logging sink, actual delivery is out of scope.
type ClubEventProcessor struct {
	onboarding *onboarding.Service
	hub        *realtime.Hub
	queue      *queue.Queue
	logger     *zap.Logger
}

// NewClubEventProcessor creates a club event processor. hub may be nil when
// the processor runs without a realtime layer (standalone worker binary).
func NewClubEventProcessor(onboardingSvc *onboarding.Service, hub *realtime.Hub, q *queue.Queue, logger *zap.Logger) *ClubEventProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClubEventProcessor{onboarding: onboardingSvc, hub: hub, queue: q, logger: logger}
}

// Process executes one job.
func (p *ClubEventProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeClubAction:
		return p.processClubAction(ctx, job)
	case queue.JobTypeEmail:
		return p.processEmail(job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *ClubEventProcessor) processClubAction(ctx context.Context, job *queue.Job) error {
	var payload queue.ClubActionPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := p.onboarding.AutoUpdate(ctx, payload.ClubID, payload.Action, payload.Data); err != nil {
		return fmt.Errorf("onboarding update: %w", err)
	}

	if p.hub != nil {
		switch payload.Action {
		case events.ActionMemberInvited:
			p.hub.BroadcastToClubAndPublish(payload.ClubID, realtime.EventInvitationReceived, payload.Data)
		case events.ActionMemberJoined:
			p.hub.BroadcastToClubAndPublish(payload.ClubID, realtime.EventMemberJoined, payload.Data)
		}
		status, err := p.onboarding.GetStatus(ctx, payload.ClubID)
		if err == nil {
			p.hub.BroadcastToClubAndPublish(payload.ClubID, realtime.EventOnboardingUpdated, status)
		}
	}

	p.logger.Info("club action processed",
		zap.String("club_id", payload.ClubID.String()), zap.String("action", payload.Action))
	return nil
}

// processEmail is the delivery stub: the invitation email is logged, not sent.
func (p *ClubEventProcessor) processEmail(job *queue.Job) error {
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	p.logger.Info("invitation email (delivery stub)",
		zap.String("club_id", payload.ClubID.String()),
		zap.String("invitation_id", payload.InvitationID.String()),
		zap.String("recipient", payload.RecipientEmail),
		zap.String("subject", payload.Subject))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ClubEventProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("club event worker stopping")
			return
		default:
		}

		job, key, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job, key); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
