package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_ShutdownRunsHooksInReverse(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	m.Register("store", func(context.Context) error { order = append(order, "store"); return nil })
	m.Register("skipped", nil)
	m.Register("http", func(context.Context) error { order = append(order, "http"); return nil })

	assert.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"http", "store"}, order)
}

func TestManager_ShutdownJoinsErrors(t *testing.T) {
	m := New(time.Second, nil)
	first := errors.New("first")
	second := errors.New("second")
	ran := false
	m.Register("a", func(context.Context) error { return first })
	m.Register("b", func(context.Context) error { return second })
	m.Register("c", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		ran = ok
		return nil
	})

	err := m.Shutdown(context.Background())

	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.True(t, ran)
}

func TestManager_ShutdownRunsHooksOnce(t *testing.T) {
	m := New(time.Second, nil)
	calls := 0
	m.Register("journal", func(context.Context) error { calls++; return nil })

	assert.NoError(t, m.Shutdown(context.Background()))
	assert.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestManager_ShutdownNamesFailedComponent(t *testing.T) {
	m := New(time.Second, nil)
	m.Register("redis", func(context.Context) error { return errors.New("closed twice") })

	err := m.Shutdown(context.Background())

	assert.EqualError(t, err, "redis: closed twice")
}

func TestManager_ListenStopsWithContext(t *testing.T) {
	m := New(time.Second, nil)
	ctx, stop := context.WithCancel(context.Background())
	cancelled := false

	m.Listen(ctx, func() { cancelled = true })
	stop()

	assert.False(t, cancelled)
}
