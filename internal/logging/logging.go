// Package logging produces the master's event log: one line per
// event, "MMM DD HH:MM:SS host:port message\n", flushed to disk after
// every write. It is built on go.uber.org/zap (grounded in
// haukened/splice's use of zap for structured logging) with a small
// custom Encoder that renders this exact line shape instead of zap's
// usual JSON or console output.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufferPool = buffer.NewPool()

// lineEncoder renders "<time> <peer> <message>\n". It embeds a
// zapcore.Encoder purely to satisfy the interface's AddXxx/field
// methods, which this format never calls.
type lineEncoder struct {
	zapcore.Encoder
}

func newLineEncoder() *lineEncoder {
	return &lineEncoder{Encoder: zapcore.NewJSONEncoder(zapcore.EncoderConfig{})}
}

func (e *lineEncoder) Clone() zapcore.Encoder {
	return &lineEncoder{Encoder: e.Encoder.Clone()}
}

func (e *lineEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	peer := "-"
	for _, f := range fields {
		if f.Key == peerFieldKey && f.Type == zapcore.StringType {
			peer = f.String
		}
	}

	buf := bufferPool.Get()
	buf.AppendString(entry.Time.Format("Jan 02 15:04:05"))
	buf.AppendByte(' ')
	buf.AppendString(peer)
	buf.AppendByte(' ')
	buf.AppendString(entry.Message)
	buf.AppendByte('\n')
	return buf, nil
}

const peerFieldKey = "peer"

// flushingSyncer calls Sync after every Write so a concurrent reader
// of the log file always sees progress, per spec.md §5.
type flushingSyncer struct {
	f *os.File
}

func (w *flushingSyncer) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.f.Sync()
}

func (w *flushingSyncer) Sync() error {
	return w.f.Sync()
}

// Logger is the master's sole log sink.
type Logger struct {
	zl *zap.Logger
	f  *os.File
}

// New opens logFile in append mode and returns a Logger writing to it.
// Fatal to the caller: an inability to open the log file aborts
// startup per spec.md §7.
func New(logFile string) (*Logger, error) {
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", logFile, err)
	}
	core := zapcore.NewCore(newLineEncoder(), &flushingSyncer{f: f}, zapcore.DebugLevel)
	return &Logger{zl: zap.New(core), f: f}, nil
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() error {
	_ = l.zl.Sync()
	return l.f.Close()
}

// Event logs one line associated with a remote peer. peer should be
// "host:port"; an empty peer is rendered as "-".
func (l *Logger) Event(peer, format string, args ...interface{}) {
	if peer == "" {
		peer = "-"
	}
	l.zl.Info(fmt.Sprintf(format, args...), zap.String(peerFieldKey, peer))
}

// System logs one line with no associated remote peer (startup,
// shutdown, periodic housekeeping).
func (l *Logger) System(format string, args ...interface{}) {
	l.Event("", format, args...)
}
