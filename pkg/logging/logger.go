// Package logging defines the logger contract shared by the dispatcher, picker,
// API client and preview server.
package logging

import (
	"context"
	"maps"
)

// Logger is the structured logger used across the module.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// Provider exposes named loggers.
type Provider interface {
	GetLogger(name string) Logger
}

// FieldsLogger is implemented by loggers able to attach persistent fields.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}

const (
	DispatcherModule = "hitas.dispatcher"
	PickerModule     = "hitas.picker"
	FormModule       = "hitas.form"
	APIModule        = "hitas.api"
	ServerModule     = "hitas.server"
	CLIModule        = "hitas.cli"
)

// ModuleLogger returns a named logger tagged with its module, falling back to a
// no-op logger when provider is nil.
func ModuleLogger(provider Provider, module string) Logger {
	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

// WithFields attaches fields when the logger supports it.
func WithFields(logger Logger, fields map[string]any) Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		copied := make(map[string]any, len(fields))
		maps.Copy(copied, fields)
		return fieldsLogger.WithFields(copied)
	}
	return logger
}

// Or returns logger, or a no-op logger when it is nil.
func Or(logger Logger) Logger {
	if logger == nil {
		return NoOp()
	}
	return logger
}

// NoOp returns a logger that discards every entry.
func NoOp() Logger {
	return noop{}
}

type noop struct{}

func (noop) Trace(string, ...any)                 {}
func (noop) Debug(string, ...any)                 {}
func (noop) Info(string, ...any)                  {}
func (noop) Warn(string, ...any)                  {}
func (noop) Error(string, ...any)                 {}
func (noop) Fatal(string, ...any)                 {}
func (n noop) WithContext(context.Context) Logger { return n }
