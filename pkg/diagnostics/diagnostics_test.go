package diagnostics_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/redox-rs/schemeio/pkg/diagnostics"
)

func TestHandshakeEmitsStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := diagnostics.New(zap.New(core))

	log.Handshake("client", 40000, 80, true)

	entries := logs.All()
	require := assert.New(t)
	require.Len(entries, 1)
	entry := entries[0]
	require.Equal("scheme event", entry.Message)

	fields := entry.ContextMap()
	require.Equal("tcp.handshake", fields["event"])
	require.Equal("client", fields["role"])
	require.Equal(true, fields["ok"])
}

func TestMountFailedIncludesError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := diagnostics.New(zap.New(core))

	log.MountFailed("primary_master", errors.New("bad signature"))

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "fs.mount.failed", fields["event"])
	assert.Equal(t, "bad signature", fields["error"])
}
