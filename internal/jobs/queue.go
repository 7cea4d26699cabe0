// Package jobs holds the background task queue: studio generation work runs
// here so webhook and API handlers never wait on a model call.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ──────────────────── Task types ────────────────────

const (
	TypeGenerateTitle       = "generation:title"
	TypeGenerateDescription = "generation:description"
	TypeGenerateThumbnail   = "generation:thumbnail"
)

// GenerationPayload identifies the video and the requesting owner. Prompt is
// only set for thumbnail generation.
type GenerationPayload struct {
	VideoID uuid.UUID `json:"video_id"`
	UserID  uuid.UUID `json:"user_id"`
	Prompt  string    `json:"prompt,omitempty"`
}

// Queue enqueues background tasks.
type Queue struct {
	client *asynq.Client
}

func NewQueue(redisAddr string) *Queue {
	return &Queue{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
	}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) enqueue(taskType string, payload GenerationPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = q.client.Enqueue(
		asynq.NewTask(taskType, data),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	)
	return err
}

func (q *Queue) EnqueueGenerateTitle(videoID, userID uuid.UUID) error {
	return q.enqueue(TypeGenerateTitle, GenerationPayload{VideoID: videoID, UserID: userID})
}

func (q *Queue) EnqueueGenerateDescription(videoID, userID uuid.UUID) error {
	return q.enqueue(TypeGenerateDescription, GenerationPayload{VideoID: videoID, UserID: userID})
}

func (q *Queue) EnqueueGenerateThumbnail(videoID, userID uuid.UUID, prompt string) error {
	return q.enqueue(TypeGenerateThumbnail, GenerationPayload{VideoID: videoID, UserID: userID, Prompt: prompt})
}
