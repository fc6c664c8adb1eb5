package gormlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fatflowers/courseshop/pkg/logctx"
)

func TestShortCaller(t *testing.T) {
	require.Equal(t, "internal/platform/db/postgres.go:38", shortCaller("/home/ci/courseshop/internal/platform/db/postgres.go:38"))
	require.Equal(t, "pkg/x/y.go:12", shortCaller(`C:/repo/project/pkg/x/y.go:12`))
	require.Equal(t, "b/c/d.go:7", shortCaller("/a/b/c/d.go:7"))
	require.Equal(t, "", shortCaller(""))
}

func TestLevelFor(t *testing.T) {
	require.Equal(t, gormlogger.Info, LevelFor("DEBUG"))
	require.Equal(t, gormlogger.Warn, LevelFor("info"))
	require.Equal(t, gormlogger.Error, LevelFor("error"))
}

func TestTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core).Sugar(), gormlogger.Warn, 50*time.Millisecond)
	ctx := logctx.WithTraceID(context.Background(), "trace-1")
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, nil)
	require.Equal(t, 0, logs.Len())

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	require.Equal(t, 0, logs.Len())

	l.Trace(ctx, time.Now(), sql, errors.New("boom"))
	require.Equal(t, 1, logs.FilterMessage("gorm_error").Len())
	require.Equal(t, "trace-1", logs.All()[0].ContextMap()["trace_id"])

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 1, logs.FilterMessage("gorm_slow").Len())

	quiet := l.LogMode(gormlogger.Silent)
	quiet.Trace(ctx, time.Now(), sql, errors.New("boom"))
	require.Equal(t, 2, logs.Len())
}
