// Package events publishes goal completion transitions so other processes
// can react (congratulate the owner, notify a team). Delivery of those
// notifications is not handled here.
package events

import (
	"context"
	"log/slog"
	"time"
)

type Kind string

const (
	KindGoalCompleted Kind = "goal.completed"
	KindGoalReopened  Kind = "goal.reopened"
)

type Event struct {
	Kind               Kind      `json:"kind"`
	GoalID             string    `json:"goal_id"`
	OwnerID            string    `json:"owner_id"`
	TeamID             string    `json:"team_id,omitempty"`
	ActorID            string    `json:"actor_id"`
	Title              string    `json:"title"`
	AccumulatedMinutes int       `json:"accumulated_minutes"`
	TargetMinutes      int       `json:"target_minutes"`
	OccurredAt         time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	slog.InfoContext(ctx, "goal transition",
		"kind", event.Kind,
		"goal_id", event.GoalID,
		"owner_id", event.OwnerID,
		"actor_id", event.ActorID,
		"accumulated_minutes", event.AccumulatedMinutes,
		"target_minutes", event.TargetMinutes,
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
