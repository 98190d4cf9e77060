package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/client/notes"
	"github.com/atinyakov/SecureNotes/internal/client/prefs"
	"github.com/atinyakov/SecureNotes/internal/client/quota"
	"github.com/atinyakov/SecureNotes/internal/client/session"
	"github.com/atinyakov/SecureNotes/internal/client/shell"
	"github.com/atinyakov/SecureNotes/internal/client/ui"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open the interactive notes shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			prompter := ui.NewPrompter(cmd.InOrStdin(), out)

			state, err := a.session.Bootstrap(a.location)
			if err != nil {
				a.log.Warn("bootstrap", zap.Error(err))
			}
			switch state.Phase {
			case session.Unauthenticated:
				return errors.New("not signed in, run: notes login")
			case session.NeedsPassword:
				if state, err = unlock(ctx, a, prompter, out); err != nil {
					return err
				}
			}

			tracker := quota.NewTracker(a.vault, a.log.Named("quota"))
			watcher := shell.NewSaveWatcher(out)
			var nb *notes.Notebook
			nb = notes.New(a.vault, tracker,
				notes.WithLogger(a.log.Named("notes")),
				notes.WithFetchLimit(a.cfg.FetchLimit),
				notes.WithWriteTimeout(a.cfg.SaveTimeout),
				notes.WithOnChange(func() { watcher.Observe(nb.Status()) }),
			)
			p := prefs.New(a.vault, a.log.Named("prefs"))

			stop := startSpinner(cmd.ErrOrStderr(), "Loading notes...")
			all := nb.LoadAll(ctx)
			perr := p.Load(ctx)
			stop()
			if perr != nil && !warnUndecryptable(out, perr) {
				fmt.Fprintln(out, ui.Warning.Sprint("Preferences could not be loaded, using defaults."))
			}

			fmt.Fprintf(out, "Signed in as %s. %d note(s). Type help for commands.\n",
				ui.Bold.Sprint(state.User.Username), len(all))
			return shell.New(nb, p, tracker, out, shell.WithLogger(a.log.Named("shell"))).Run(ctx, prompter)
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and the encryption password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.session.Bootstrap(a.location); err != nil {
				a.log.Warn("bootstrap", zap.Error(err))
			}
			if err := a.session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success.Sprint("Signed out."))
			return nil
		},
	}
}
