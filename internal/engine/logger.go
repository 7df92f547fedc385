package engine

import (
	"bytes"
	"sync"

	"go.uber.org/zap"
)

var (
	loggerMu sync.RWMutex
	logger   = zap.NewNop()
)

// SetLogger replaces the engine logger. A nil logger restores the no-op default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// Logger returns the current engine logger.
func Logger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// consoleWriter turns guest stdout/stderr into one log entry per line.
type consoleWriter struct {
	mu     sync.Mutex
	log    *zap.Logger
	stream string
	buf    []byte
}

func newConsoleWriter(handle, stream string) *consoleWriter {
	return &consoleWriter{log: Logger().With(zap.String("handle", handle)), stream: stream}
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *consoleWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *consoleWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	if w.stream == "stderr" {
		w.log.Warn("guest console", zap.String("stream", w.stream), zap.ByteString("line", line))
		return
	}
	w.log.Debug("guest console", zap.String("stream", w.stream), zap.ByteString("line", line))
}
