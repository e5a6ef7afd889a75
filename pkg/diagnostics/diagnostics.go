// Package diagnostics provides a small structured debug-event log over
// zap, standing in for the teacher's generated eventchannel DebugEvent
// message: a named event plus key/value fields, logged rather than
// serialized onto a wire since this subsystem has no remote event sink.
package diagnostics

import "go.uber.org/zap"

// Event is one structured diagnostic record: a short stable name (e.g.
// "tcp.handshake", "fs.sync.insufficient_space") plus whatever
// zap fields the caller wants attached.
type Event struct {
	Name   string
	Fields []zap.Field
}

// Log is a thin wrapper around a *zap.Logger that always logs Events at
// Info level under a single "event" key, keeping every emission site in
// this module consistent regardless of which component raised it.
type Log struct {
	logger *zap.Logger
}

// New wraps logger. A nil logger is replaced with a no-op one.
func New(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Emit records ev.
func (l *Log) Emit(ev Event) {
	fields := append([]zap.Field{zap.String("event", ev.Name)}, ev.Fields...)
	l.logger.Info("scheme event", fields...)
}

// Handshake records handshake status for a TCP connection.
func (l *Log) Handshake(role string, hostPort, peerPort uint16, ok bool) {
	l.Emit(Event{
		Name: "tcp.handshake",
		Fields: []zap.Field{
			zap.String("role", role),
			zap.Uint16("host_port", hostPort),
			zap.Uint16("peer_port", peerPort),
			zap.Bool("ok", ok),
		},
	})
}

// SyncInsufficientSpace records a FileResource.Sync call that couldn't
// flush its whole buffer into the node's existing extents.
func (l *Log) SyncInsufficientSpace(node string, remaining int64) {
	l.Emit(Event{
		Name: "fs.sync.insufficient_space",
		Fields: []zap.Field{
			zap.String("node", node),
			zap.Int64("remaining", remaining),
		},
	})
}

// MountFailed records a failed probe attempt against one candidate
// device.
func (l *Log) MountFailed(position string, err error) {
	l.Emit(Event{
		Name: "fs.mount.failed",
		Fields: []zap.Field{
			zap.String("position", position),
			zap.Error(err),
		},
	})
}
