package health

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadiness(t *testing.T) {
	s := New()
	assert.False(t, s.IsReady(), "not ready before SetReady")

	s.SetReady(true)
	assert.True(t, s.IsReady())

	s.SetReady(false)
	assert.False(t, s.IsReady())
}

func TestFailureThreshold(t *testing.T) {
	p := &probe{name: "db", kind: readiness, timeout: time.Second, check: func(context.Context) error {
		return errors.New("connection refused")
	}}
	p.healthy.Store(true)

	ctx := context.Background()
	p.run(ctx)
	p.run(ctx)
	assert.True(t, p.healthy.Load(), "two failures stay healthy")

	p.run(ctx)
	assert.False(t, p.healthy.Load(), "third consecutive failure flips unhealthy")
}

func TestRecoveryOnFirstSuccess(t *testing.T) {
	fail := true
	p := &probe{name: "db", kind: readiness, timeout: time.Second, check: func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}}

	ctx := context.Background()
	for i := 0; i < failureThreshold; i++ {
		p.run(ctx)
	}
	require.False(t, p.healthy.Load())

	fail = false
	p.run(ctx)
	assert.True(t, p.healthy.Load(), "single success recovers")
}

func TestEndpoints(t *testing.T) {
	s := New()
	s.AddReadinessCheck("db", time.Second, func(context.Context) error { return nil })
	s.SetReady(true)

	t.Run("ready ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ReadyEndpoint(rec, httptest.NewRequest("GET", "/readyz", nil))
		assert.Equal(t, 200, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("live ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.LiveEndpoint(rec, httptest.NewRequest("GET", "/livez", nil))
		assert.Equal(t, 200, rec.Code)
	})

	t.Run("not ready after drain", func(t *testing.T) {
		s.SetReady(false)
		rec := httptest.NewRecorder()
		s.ReadyEndpoint(rec, httptest.NewRequest("GET", "/readyz", nil))
		assert.Equal(t, 503, rec.Code)
	})
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
