package main

import (
	"cmp"
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "notes",
		Short: "Encrypted notes synced to your vault",
		Long: `notes keeps short text notes in your vault. Everything is encrypted with a
password that never leaves this machine.

Configuration comes from the environment:
  NOTES_APP_TOKEN     application token issued by the vault (required)
  NOTES_REDIRECT_URI  redirect URI registered for the app (required)
  NOTES_SERVER_URL    vault address
  NOTES_CA_FILE       extra CA certificate to trust
  NOTES_STATE_DIR     where the session is kept
  NOTES_STORE         session storage: file or sqlite
  NOTES_FETCH_LIMIT   notes fetched in parallel at load
  NOTES_SAVE_TIMEOUT  time limit of one background save
  NOTES_LOG_LEVEL     debug, info, warn or error`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newLoginCmd(),
		newCallbackCmd(),
		newShellCmd(),
		newLogoutCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Build version: %s\n", cmp.Or(version, "N/A"))
			fmt.Fprintf(cmd.OutOrStdout(), "Build date: %s\n", cmp.Or(buildDate, "N/A"))
		},
	}
}
