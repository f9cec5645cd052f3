package cli

import (
	"context"
	"io"
	stdlog "log"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"uptime/internal/auth"
	"uptime/internal/backend/uptimeapi"
	"uptime/internal/config"
	"uptime/internal/localstate"
	"uptime/internal/session"
)

// SessionFactory builds the session for commands that need one.
// Tests inject a FakeService through it.
type SessionFactory func(ctx context.Context, cfg *config.Config, log logr.Logger) (*session.Session, error)

// NewSession wires a session against the HTTP backend at cfg.APIURL.
func NewSession(ctx context.Context, cfg *config.Config, log logr.Logger) (*session.Session, error) {
	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}

	creds := &uptimeapi.Credentials{}
	client := uptimeapi.New(cfg.APIURL, creds,
		uptimeapi.WithTimeout(cfg.APITimeout),
		uptimeapi.WithLogger(log),
	)

	return session.New(session.Config{
		Remote:           client,
		Provider:         auth.NewFileProvider(cfg.TokenPath()),
		Credentials:      creds,
		State:            localstate.Open(cfg.StatePath()),
		Log:              log,
		AutosaveInterval: cfg.AutosaveInterval,
	}), nil
}

// NewLogger returns the logger for a run: nothing with --quiet, errors
// otherwise, and request-level detail with --debug.
func NewLogger(w io.Writer, cfg *config.Config) logr.Logger {
	if cfg.Quiet && !cfg.Debug {
		return logr.Discard()
	}
	if cfg.Debug {
		stdr.SetVerbosity(1)
	}
	return stdr.New(stdlog.New(w, "uptime: ", 0))
}
