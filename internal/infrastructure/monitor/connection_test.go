package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskboard/internal/infrastructure/journal"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestMonitor_CheckRecordsProbeResults(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m := New(Checks{Postgres: up, Redis: down}, time.Minute, nil)
	m.now = func() time.Time { return now }

	status := m.Check()

	assert.True(t, status.PostgreSQL)
	assert.False(t, status.Redis)
	assert.False(t, status.Journal)
	assert.False(t, status.Healthy())
	assert.Equal(t, now, status.LastCheck)
	assert.Equal(t, status, m.GetStatus())
	assert.True(t, m.IsOnline())
}

func TestMonitor_IsOnlineFollowsPostgres(t *testing.T) {
	online := true
	m := New(Checks{
		Postgres: func(context.Context) error {
			if online {
				return nil
			}
			return errors.New("timeout")
		},
		Redis: up,
	}, time.Minute, nil)

	m.Check()
	assert.True(t, m.IsOnline())

	online = false
	m.Check()
	assert.False(t, m.IsOnline())
	assert.True(t, m.GetStatus().Redis)
}

func TestMonitor_NilProbesReportDown(t *testing.T) {
	m := New(Checks{Postgres: PingPostgres(nil), Redis: PingRedis(nil)}, 0, nil)

	status := m.Check()

	assert.False(t, status.PostgreSQL)
	assert.False(t, status.Redis)
}

func TestMonitor_JournalSize(t *testing.T) {
	store, err := journal.Open(filepath.Join(t.TempDir(), "drift.db"), "drift")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Append(journal.Entry{SessionID: "s1", UserID: "u1", Scope: journal.ScopeTasks, Missing: []string{"t1"}}))

	m := New(Checks{JournalSize: store.Size}, time.Minute, nil)
	status := m.Check()

	assert.True(t, status.Journal)
	assert.Equal(t, 1, status.JournalSize)
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	m := New(Checks{Postgres: up, Redis: up}, time.Hour, nil)
	m.Start()

	assert.True(t, m.GetStatus().Healthy())
	m.Stop()
	m.Stop()
}
