package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// outputCore writes build output ("-----> ...") as bare lines and hands
// everything else to the wrapped diagnostic core.
type outputCore struct {
	zapcore.Core

	// output encodes the message only. It never accumulates fields.
	output zapcore.Core
}

// Check adds the core to a checked entry if the log entry level is enabled for logging.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *outputCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// With adds fields to the diagnostic core only.
//
//nolint:ireturn,nolintlint // Returning zapcore.Core is intended for zap integration.
func (c *outputCore) With(fields []zapcore.Field) zapcore.Core {
	return &outputCore{
		c.Core.With(fields),
		c.output,
	}
}

// Write routes build output to the bare encoder.
//
//nolint:gocritic // zapcore.Core requires ent to be passed by value.
func (c *outputCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if strings.HasPrefix(ent.Message, statusPrefix) {
		return c.output.Write(ent, nil)
	}

	return c.Core.Write(ent, fields)
}
