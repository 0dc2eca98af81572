package server

import (
	"fmt"
	"log"
	"runtime"
	"time"
)

// A Logger records text logs from a Coordinator. A nil Logger discards
// its input.
type Logger func(text string)

// Printf writes a formatted message to lg, discarding it if lg is nil.
func (lg Logger) Printf(msg string, args ...any) {
	if lg != nil {
		lg(fmt.Sprintf(msg, args...))
	}
}

// StdLogger adapts a *log.Logger to a Logger. If logger is nil, the
// returned Logger writes to the default logger.
func StdLogger(logger *log.Logger) Logger {
	if logger == nil {
		return func(text string) { log.Output(2, text) }
	}
	return func(text string) { logger.Output(2, text) }
}

// CoordinatorOptions controls the behavior of a Coordinator created by
// NewCoordinator. A nil *CoordinatorOptions provides sensible defaults.
type CoordinatorOptions struct {
	// If not nil, debug text logs are sent here.
	Logger Logger

	// Bounds the number of request handlers allowed to execute
	// concurrently across all clients. A value less than 1 uses
	// runtime.NumCPU().
	Concurrency int

	// The timeout applied to outbound requests that do not specify one
	// explicitly. Defaults to 30 seconds.
	DefaultTimeout time.Duration
}

func (o *CoordinatorOptions) logFunc() Logger {
	if o == nil {
		return nil
	}
	return o.Logger
}

func (o *CoordinatorOptions) concurrency() int64 {
	if o == nil || o.Concurrency < 1 {
		return int64(runtime.NumCPU())
	}
	return int64(o.Concurrency)
}

func (o *CoordinatorOptions) defaultTimeout() time.Duration {
	if o == nil || o.DefaultTimeout <= 0 {
		return 30 * time.Second
	}
	return o.DefaultTimeout
}
