package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDailyRebuild recomputes one day's projection rows from raw records.
	TaskDailyRebuild = "daily:rebuild"
)

// DailyRebuildPayload selects the day to rebuild. An empty Date means the
// previous UTC day, which is what the nightly cron wants.
type DailyRebuildPayload struct {
	Date string `json:"date,omitempty"`
}

// Day resolves the payload's target day.
func (p DailyRebuildPayload) Day(now time.Time) (time.Time, error) {
	if p.Date == "" {
		return now.UTC().AddDate(0, 0, -1), nil
	}
	return time.Parse("2006-01-02", p.Date)
}

// NewDailyRebuildTask constructs an Asynq task.
func NewDailyRebuildTask(payload DailyRebuildPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailyRebuild, data), nil
}

// NewDailyRebuildHandler adapts a Rebuilder into an Asynq handler.
func NewDailyRebuildHandler(rebuilder *Rebuilder) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DailyRebuildPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		day, err := payload.Day(time.Now())
		if err != nil {
			return asynq.SkipRetry
		}
		return rebuilder.Rebuild(ctx, day)
	}
}
