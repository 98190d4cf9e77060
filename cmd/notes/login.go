package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/client/session"
	"github.com/atinyakov/SecureNotes/internal/client/ui"
	"github.com/atinyakov/SecureNotes/internal/vault"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in through the vault and set the encryption password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this URL in your browser to sign in:")
			fmt.Fprintln(out, ui.Info.Sprint(a.session.LoginURL()))

			stop := startSpinner(cmd.ErrOrStderr(), "Waiting for authorization...")
			err = session.ListenForCallback(cmd.Context(), a.cfg.RedirectURI, a.location, a.log.Named("callback"))
			stop()
			if err != nil {
				return fmt.Errorf("%w\nafter signing in, run: notes callback <redirected URL>", err)
			}
			return finishLogin(cmd.Context(), a, a.location, cmd.InOrStdin(), out)
		},
	}
}

func newCallbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "callback <url>",
		Short: "Complete sign-in with the URL the browser was redirected to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			loc, err := session.NewURLLocation(args[0])
			if err != nil {
				return fmt.Errorf("invalid URL: %w", err)
			}
			return finishLogin(cmd.Context(), a, loc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// finishLogin bootstraps from the recorded redirect and, when it carries an
// authorization code, asks for the password and exchanges the code.
func finishLogin(ctx context.Context, a *app, loc session.Location, in io.Reader, out io.Writer) error {
	state, err := a.session.Bootstrap(loc)
	if err != nil {
		a.log.Warn("bootstrap", zap.Error(err))
	}
	switch state.Phase {
	case session.Authenticated:
		fmt.Fprintln(out, ui.Success.Sprintf("Already signed in as %s", state.User.Username))
		return nil
	case session.Unauthenticated:
		return errors.New("authorization was not granted")
	}
	if _, err := unlock(ctx, a, ui.NewPrompter(in, out), out); err != nil {
		return err
	}
	if _, err := a.vault.GetMetadata(ctx); err != nil && !warnUndecryptable(out, err) {
		a.log.Debug("password check skipped", zap.Error(err))
	}
	return nil
}

// warnUndecryptable tells the user that existing vault data was sealed
// under another password. The exchange cannot detect this; only reading
// sealed data can.
func warnUndecryptable(out io.Writer, err error) bool {
	if !errors.Is(err, vault.ErrDecrypt) {
		return false
	}
	fmt.Fprintln(out, ui.Warning.Sprint(
		"Existing notes could not be decrypted with this password. To enter another one, run: notes logout, then notes login"))
	return true
}

// unlock prompts for the encryption password until the exchange succeeds
// or the input is exhausted.
func unlock(ctx context.Context, a *app, p *ui.Prompter, out io.Writer) (session.State, error) {
	fmt.Fprintln(out, "Choose the password that encrypts your notes. It never leaves this machine.")
	for {
		pw, err := p.Password("Encryption password: ")
		if errors.Is(err, ui.ErrEmptyInput) {
			fmt.Fprintln(out, ui.Warning.Sprint("The password cannot be empty."))
			continue
		}
		if err != nil {
			return a.session.State(), err
		}

		stop := startSpinner(out, "Signing in...")
		state, err := a.session.Exchange(ctx, pw)
		stop()

		var authErr *session.AuthError
		switch {
		case errors.As(err, &authErr):
			var se *vault.StatusError
			if errors.As(authErr, &se) && se.StatusCode == http.StatusBadRequest {
				return state, fmt.Errorf("%w\nthe authorization code was rejected, run: notes login", err)
			}
			fmt.Fprintln(out, ui.Error.Sprint(authErr.Error()))
			continue
		case err != nil && state.Phase == session.Authenticated:
			fmt.Fprintln(out, ui.Warning.Sprintf("Signed in, but the session was not saved: %v", err))
		case err != nil:
			return state, err
		}
		fmt.Fprintln(out, ui.Success.Sprintf("Signed in as %s", state.User.Username))
		return state, nil
	}
}
