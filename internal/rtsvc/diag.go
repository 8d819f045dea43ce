package rtsvc

import (
	"fmt"
	"log/slog"
	"os"
)

// Diagnostics is the hosting environment's reporting surface for Boot.
//
// Halt must not return. Boot panics if it does.
type Diagnostics interface {
	Reporter
	Halt(err error)
}

// LogDiagnostics reports through a slog.Logger and halts by exiting the
// process.
type LogDiagnostics struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Exit defaults to os.Exit.
	Exit func(code int)
}

func (d LogDiagnostics) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// InitFailed implements Reporter.
func (d LogDiagnostics) InitFailed(index int, name string, err error) {
	d.logger().Error("runtime service init failed",
		"service", name,
		"index", index,
		"error", err,
	)
}

// Halt logs err and exits with status 1.
func (d LogDiagnostics) Halt(err error) {
	d.logger().Error("invalid runtime service catalog, halting",
		"code", CodeOf(err),
		"error", err,
	)
	exit := d.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)
}

// LogReporter returns a Reporter logging init failures to logger, or to
// slog.Default() when logger is nil.
func LogReporter(logger *slog.Logger) Reporter {
	return LogDiagnostics{Logger: logger}
}

// Boot builds the index for c. Init failures go to diag; any structural
// error is passed to diag.Halt and Boot does not return normally.
func Boot(c Catalog, diag Diagnostics, opts ...BuildOption) *Index {
	opts = append([]BuildOption{WithReporter(diag)}, opts...)
	ix, err := Build(c, opts...)
	if err != nil {
		diag.Halt(err)
		panic(fmt.Sprintf("rtsvc: Halt returned after %v", err))
	}
	return ix
}
