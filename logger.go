package cotacao

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"
)

type Logger interface {
	Printf(format string, a ...interface{})
}

type ConsoleLogger struct{}

func (logger ConsoleLogger) Printf(format string, a ...interface{}) {
	fmt.Printf(format, a...)
	fmt.Println()
}

// BufferedLogger collects output until flushed into another Logger.
// Useful in tests and for grouping the trace of one pair.
type BufferedLogger struct {
	buffer bytes.Buffer
}

func (buflog *BufferedLogger) Printf(format string, a ...interface{}) {
	fmt.Fprintf(&buflog.buffer, format, a...)
}

func (buflog *BufferedLogger) Flush(logger Logger) {
	s := buflog.buffer.String()
	if s != "" {
		logger.Printf("%v", s)
	}
}

func (buflog *BufferedLogger) String() string {
	return buflog.buffer.String()
}

// ZapLogger adapts a zap logger to the Logger interface so the extraction
// engine can trace through the application's structured logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (logger *ZapLogger) Printf(format string, a ...interface{}) {
	logger.sugar.Debugf(format, a...)
}
