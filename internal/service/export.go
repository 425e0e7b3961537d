package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/templui/goaltrack/internal/model"
	"github.com/templui/goaltrack/internal/repository"
	"github.com/templui/goaltrack/internal/storage"
)

// ExportDocument is the JSON layout of a goal export.
type ExportDocument struct {
	UserID     string       `json:"user_id"`
	ExportedAt time.Time    `json:"exported_at"`
	Goals      []ExportGoal `json:"goals"`
}

type ExportGoal struct {
	*model.Goal
	Percentage int              `json:"percentage"`
	Logs       []*model.TimeLog `json:"logs"`
}

// Export is a stored export and a temporary link to it.
type Export struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Goals int    `json:"goals"`
}

type ExportService struct {
	goals   repository.GoalRepository
	logs    repository.TimeLogRepository
	storage storage.Storage
	expiry  time.Duration
}

// NewExportService returns an exporter. A nil storage disables exports.
func NewExportService(goals repository.GoalRepository, logs repository.TimeLogRepository, storage storage.Storage, expiry time.Duration) *ExportService {
	return &ExportService{
		goals:   goals,
		logs:    logs,
		storage: storage,
		expiry:  expiry,
	}
}

// Build assembles the export document of every goal visible to userID.
func (s *ExportService) Build(ctx context.Context, userID string) (*ExportDocument, error) {
	goals, err := s.goals.VisibleGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}

	doc := &ExportDocument{
		UserID:     userID,
		ExportedAt: time.Now().UTC(),
		Goals:      make([]ExportGoal, 0, len(goals)),
	}
	for _, goal := range goals {
		logs, err := s.logs.ByGoal(ctx, goal.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list logs for goal %s: %w", goal.ID, err)
		}
		doc.Goals = append(doc.Goals, ExportGoal{
			Goal:       goal,
			Percentage: ProgressPercentage(goal.AccumulatedMinutes, goal.TargetMinutes),
			Logs:       logs,
		})
	}

	return doc, nil
}

// Export writes the document to storage and returns a download link.
func (s *ExportService) Export(ctx context.Context, userID string) (*Export, error) {
	if s.storage == nil {
		return nil, ErrExportDisabled
	}

	doc, err := s.Build(ctx, userID)
	if err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s-%s.json", userID, doc.ExportedAt.Format("20060102T150405Z"), uuid.New().String())
	err = s.storage.Save(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	url, err := s.storage.PresignedURL(ctx, key, s.expiry)
	if err != nil {
		delErr := s.storage.Delete(ctx, key)
		if delErr != nil {
			slog.Error("failed to delete unreachable export", "error", delErr, "key", key)
		}
		return nil, err
	}

	return &Export{
		Key:   key,
		URL:   url,
		Goals: len(doc.Goals),
	}, nil
}
