package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/client/credentials"
	"github.com/atinyakov/SecureNotes/internal/client/session"
	"github.com/atinyakov/SecureNotes/internal/config"
	"github.com/atinyakov/SecureNotes/internal/logger"
	"github.com/atinyakov/SecureNotes/internal/vault"
)

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Client
	log      *zap.Logger
	vault    *vault.Client
	session  *session.Manager
	location *session.FileLocation
	closers  []func() error
}

func newApp() (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}

	l := logger.New()
	if err := l.InitCLI(cfg.LogLevel); err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: l.Log}

	opts := []vault.Option{
		vault.WithTimeout(cfg.Timeout),
		vault.WithLogger(a.log.Named("vault")),
		vault.WithLoginHint(cfg.LoginHint),
	}
	if cfg.CAFile != "" {
		opts = append(opts, vault.WithRootCAs(cfg.CAFile))
	}
	a.vault, err = vault.New(cfg.ServerURL, cfg.AppToken, cfg.RedirectURI, opts...)
	if err != nil {
		return nil, fmt.Errorf("configure vault client: %w", err)
	}

	medium, err := a.openMedium()
	if err != nil {
		return nil, err
	}
	store := credentials.NewStore(medium, a.log.Named("credentials"))
	a.session = session.NewManager(a.vault, store, a.log.Named("session"))
	a.location = session.NewFileLocation(cfg.RedirectPath())
	return a, nil
}

func (a *app) openMedium() (credentials.Medium, error) {
	switch a.cfg.Store {
	case config.StoreSQLite:
		m, err := credentials.OpenSQLite(a.cfg.SessionPath())
		if err != nil {
			return nil, fmt.Errorf("open session database: %w", err)
		}
		a.closers = append(a.closers, m.Close)
		return m, nil
	default:
		return credentials.NewFileMedium(a.cfg.SessionPath()), nil
	}
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}

// startSpinner shows message with a spinner on w until the returned stop
// function is called.
func startSpinner(w io.Writer, message string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}
