package service

import (
	"context"
	"errors"
	"testing"

	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	entries []domain.ActivityLog
}

func (p *capturePublisher) PublishActivity(entry domain.ActivityLog) {
	p.entries = append(p.entries, entry)
}

type failingActivityRepo struct{}

func (failingActivityRepo) Append(context.Context, *domain.ActivityLog) error {
	return errors.New("disk full")
}

func (failingActivityRepo) ListRecent(context.Context, string, *int64, int) ([]domain.ActivityLog, error) {
	return nil, nil
}

func TestActivityLogger_RecordFillsDefaultsAndPublishes(t *testing.T) {
	db := setupServiceDB(t)
	logger := NewActivityLogger(repository.NewActivityLogRepository(db))
	pub := &capturePublisher{}
	logger.SetPublisher(pub)

	logger.Record(context.Background(), newActivity(domain.ActionAgentPing, nil, nil, nil))

	require.Len(t, pub.entries, 1)
	assert.NotEmpty(t, pub.entries[0].ID)
	assert.False(t, pub.entries[0].CreatedAt.IsZero())
	assert.NotNil(t, pub.entries[0].Metadata)
	assert.True(t, pub.entries[0].Success)

	logs, err := logger.Recent(context.Background(), domain.ActionAgentPing, nil, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestActivityLogger_WriteFailureIsSwallowed(t *testing.T) {
	logger := NewActivityLogger(failingActivityRepo{})
	pub := &capturePublisher{}
	logger.SetPublisher(pub)

	assert.NotPanics(t, func() {
		logger.Record(context.Background(), newActivity(domain.ActionGenerate, nil, nil, errors.New("boom")))
	})
	assert.Empty(t, pub.entries)
}

func TestActivityLogger_NilReceiver(t *testing.T) {
	var logger *ActivityLogger
	assert.NotPanics(t, func() {
		logger.Record(context.Background(), domain.ActivityLog{Action: domain.ActionGenerate})
	})
}

func TestActivityLogger_RecordSurvivesCancelledContext(t *testing.T) {
	db := setupServiceDB(t)
	logger := NewActivityLogger(repository.NewActivityLogRepository(db))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger.Record(ctx, newActivity(domain.ActionImageRepair, nil, nil, nil))

	logs, err := logger.Recent(context.Background(), domain.ActionImageRepair, nil, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
