package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueClubActions is the Redis list key for club lifecycle action jobs.
	QueueClubActions = "worker:club_actions"
	// QueueEmails is the Redis list key for invitation email jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeClubAction JobType = "club_action"
	JobTypeEmail      JobType = "email"
)

// ClubActionPayload is the payload for club lifecycle action jobs. Action is
// one of the club lifecycle action tags (club_created, modules_enabled,
// member_invited, event_created); Data carries action-specific extras such as
// the enabled module list.
type ClubActionPayload struct {
	ClubID uuid.UUID       `json:"club_id"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// EmailPayload is the payload for invitation email jobs.
type EmailPayload struct {
	ClubID         uuid.UUID `json:"club_id"`
	InvitationID   uuid.UUID `json:"invitation_id"`
	RecipientEmail string    `json:"recipient_email"`
	Subject        string    `json:"subject"`
	BodyText       string    `json:"body_text"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueClubAction enqueues a club lifecycle action job.
func (q *Queue) EnqueueClubAction(ctx context.Context, payload ClubActionPayload) error {
	if err := q.enqueue(ctx, QueueClubActions, JobTypeClubAction, payload); err != nil {
		return err
	}
	q.logger.Debug("enqueued club action job",
		zap.String("club_id", payload.ClubID.String()), zap.String("action", payload.Action))
	return nil
}

// EnqueueEmail enqueues an invitation email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	if err := q.enqueue(ctx, QueueEmails, JobTypeEmail, payload); err != nil {
		return err
	}
	q.logger.Debug("enqueued email job",
		zap.String("invitation_id", payload.InvitationID.String()), zap.String("recipient", payload.RecipientEmail))
	return nil
}

func (q *Queue) enqueue(ctx context.Context, key string, jobType JobType, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// Dequeue blocks until a job is available on any queue or ctx is done.
// Returns the job and the queue name it came from.
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueClubActions, QueueEmails).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job on its queue with incremented attempt.
// If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job, key string) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if key == "" {
		key = QueueClubActions
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
