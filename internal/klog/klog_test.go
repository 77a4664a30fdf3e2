package klog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerCreatedBeforeInitReachesTheSink(t *testing.T) {
	log := With("boot")

	var buf bytes.Buffer
	Init(&buf, zapcore.DebugLevel)
	defer func() { Init(&bytes.Buffer{}, zapcore.ErrorLevel) }()

	log.Infof("heap seeded with %d ranges", 3)
	out := buf.String()
	require.Contains(t, out, "heap seeded with 3 ranges")
	require.Contains(t, out, "boot", "entries must carry the component tag")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, zapcore.InfoLevel)
	defer func() { Init(&bytes.Buffer{}, zapcore.ErrorLevel) }()

	With("sched").Debugf("not visible")
	With("sched").Warnf("visible")

	out := buf.String()
	require.NotContains(t, out, "not visible")
	require.Contains(t, out, "visible")
}
