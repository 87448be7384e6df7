package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kndndrj/sailcheck/logging"
)

func TestNew_Levels(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	logger := logging.New(&buf, false)
	logger.Debug("hidden")
	logger.Infof("connecting to %s", "sc://localhost")
	r.NoError(logger.Sync())

	r.NotContains(buf.String(), "hidden")
	r.Contains(buf.String(), "connecting to sc://localhost")

	buf.Reset()
	logger = logging.New(&buf, true)
	logger.Debugf("attempt %d", 2)
	r.NoError(logger.Sync())
	r.Contains(buf.String(), "attempt 2")
}

func TestFromZap_With(t *testing.T) {
	r := require.New(t)

	obs, logs := observer.New(zap.DebugLevel)
	logger := logging.FromZap(zap.New(obs)).With("stage", "session")

	logger.Warn("slow")
	logger.Errorf("failed: %v", "boom")

	entries := logs.All()
	r.Len(entries, 2)
	r.Equal("slow", entries[0].Message)
	r.Equal("session", entries[0].ContextMap()["stage"])
	r.Equal("failed: boom", entries[1].Message)
}
