package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task is one post-commit side effect, written in the same transaction as
// the state change that requires it so it cannot be lost between the
// commit and the dispatch.
type Task struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Topic       string         `gorm:"type:varchar(64);not null;index:ix_outbox_tasks_topic"`
	Key         string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`
	Attempts    int            `gorm:"not null;default:0"`
	CreatedAt   time.Time      `gorm:"type:datetime(3);not null;index:ix_outbox_tasks_created"`
	ProcessedAt *time.Time     `gorm:"type:datetime(3)"`
	LastError   *string        `gorm:"type:varchar(255)"`
}

func (Task) TableName() string { return "outbox_tasks" }

// Unmarshal decodes the payload into v.
func (t Task) Unmarshal(v any) error {
	return json.Unmarshal(t.PayloadJSON, v)
}

// Enqueue inserts a task using the caller's transaction handle.
func Enqueue(tx *gorm.DB, topic, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	t := Task{
		ID:          uuid.NewString(),
		Topic:       topic,
		Key:         key,
		PayloadJSON: datatypes.JSON(raw),
		CreatedAt:   time.Now(),
	}
	return tx.Create(&t).Error
}

func fetchPending(ctx context.Context, db *gorm.DB, maxAttempts, limit int) ([]Task, error) {
	var tasks []Task
	err := db.WithContext(ctx).
		Where("processed_at IS NULL AND attempts < ?", maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}
