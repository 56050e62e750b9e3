package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSet(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))

	Named("cpu").Debug("dispatch", zap.Int("lanes", 600))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "cpu", entries[0].LoggerName)
		assert.Equal(t, "dispatch", entries[0].Message)
		assert.Equal(t, int64(600), entries[0].ContextMap()["lanes"])
	}
}

func TestSet_NilRestoresNop(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	Set(nil)

	L().Info("dropped")
	assert.Zero(t, logs.Len())
}
