package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cdcrouter/pkg/logging"
)

func TestCtxVariantsAttachContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromCore(core)
	log.(*SugaredLogger).SetServiceName("cdc-router")

	ctx := logging.WithInvocationID(context.Background(), "req-42")
	log.InfowCtx(ctx, "dispatched", "records", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["invocation_id"])
	assert.Equal(t, "cdc-router", fields["service_name"])
	assert.EqualValues(t, 3, fields["records"])
}

func TestContextServiceNameWins(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewFromCore(core)
	log.(*SugaredLogger).SetServiceName("default")

	ctx := logging.WithServiceName(context.Background(), "override")
	log.WarnwCtx(ctx, "warned")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "override", logs.All()[0].ContextMap()["service_name"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNew(t *testing.T) {
	log, err := New("info", "console")
	require.NoError(t, err)
	assert.NotNil(t, log)
}
