package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		level   zapcore.Level
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}, level: zapcore.InfoLevel},
		{name: "console debug", cfg: Config{Level: "debug", Encoding: "console"}, level: zapcore.DebugLevel},
		{name: "json warn", cfg: Config{Level: "warn", Encoding: "json"}, level: zapcore.WarnLevel},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
		{name: "bad encoding", cfg: Config{Encoding: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := newLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.level))
			assert.False(t, l.Core().Enabled(tt.level-1))
		})
	}
}

func TestInitReplacesGlobal(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { SetLogger(prev) })

	require.NoError(t, Init(Config{Level: "error"}))
	assert.NotSame(t, prev, Get())
	assert.False(t, Get().Core().Enabled(zapcore.WarnLevel))

	assert.Error(t, Init(Config{Level: "loud"}))
	assert.False(t, Get().Core().Enabled(zapcore.WarnLevel), "failed Init keeps the previous logger")

	nop := zap.NewNop()
	SetLogger(nop)
	assert.Same(t, nop, Get())
}

func TestJobID(t *testing.T) {
	_, ok := JobID(context.Background())
	assert.False(t, ok)

	_, ok = JobID(ContextWithJobID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := JobID(ContextWithJobID(context.Background(), "job-1"))
	assert.True(t, ok)
	assert.Equal(t, "job-1", id)
}
