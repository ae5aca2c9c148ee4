package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AllHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg := NewCheckerRegistry()
	reg.Register(NewRedisChecker(client))
	reg.Register(NewFuncChecker("kafka", false, func(context.Context) error { return nil }))

	h := reg.Check(context.Background())
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Equal(t, StatusHealthy, h.Checks["redis"].Status)
	assert.Equal(t, StatusHealthy, h.Checks["kafka"].Status)
}

func TestRegistry_OptionalFailureDegrades(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	reg := NewCheckerRegistry()
	reg.Register(NewRedisChecker(client))

	h := reg.Check(context.Background())
	assert.Equal(t, StatusDegraded, h.Status)
	assert.Contains(t, h.Checks["redis"].Message, "redis ping failed")
}

func TestRegistry_RequiredFailureIsUnhealthy(t *testing.T) {
	reg := NewCheckerRegistry()
	reg.Register(NewFuncChecker("kafka", false, func(context.Context) error { return errors.New("no brokers") }))
	reg.Register(NewFuncChecker("cache", true, func(context.Context) error { return errors.New("down") }))

	h := reg.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Equal(t, StatusDegraded, h.Checks["cache"].Status)
}

func TestHandler(t *testing.T) {
	reg := NewCheckerRegistry()
	reg.Register(NewFuncChecker("kafka", false, func(context.Context) error { return errors.New("no brokers") }))

	rec := httptest.NewRecorder()
	reg.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var h Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, StatusUnhealthy, h.Status)
}
