package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/manager"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app carries what the subcommands share once the root's PersistentPreRunE has run.
type app struct {
	cfgFile  string
	settings *config.Settings
	manager  *manager.Manager

	// openStore defaults to manager.OpenStore.
	openStore func(ctx context.Context, cfg config.StoreConfig) (credentials.Store, error)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Sign in to the API and make authenticated requests",
		Long: `sessionctl keeps a session with the authentication backend.

Credentials are stored locally and renewed automatically when the server
rejects an expired access token. If renewal fails the session is cleared
and you need to log in again.

Configuration is read from --config (YAML) and AUTH_* environment variables.
Example: AUTH_API_URL=https://api.example.com/api sessionctl status`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(a.settings.GetAppName())
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: environment only)")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newStatusCmd(a),
		newGetCmd(a),
	)
	return root
}

// execute runs root and closes the manager afterwards, also when the command fails.
func (a *app) execute(ctx context.Context, root *cobra.Command) (err error) {
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	return root.ExecuteContext(ctx)
}

// close waits for an in-flight renewal and releases the store.
func (a *app) close() error {
	if a.manager == nil {
		return nil
	}
	err := a.manager.Close()
	a.manager = nil
	return err
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.settings = settings
	configureLogging(cmd.ErrOrStderr(), settings.GetLogLevel())

	if cmd == cmd.Root() {
		return nil
	}

	openStore := a.openStore
	if openStore == nil {
		openStore = manager.OpenStore
	}
	store, err := openStore(cmd.Context(), settings)
	if err != nil {
		return err
	}
	m, err := manager.New(cmd.Context(), settings, store, manager.WithOnTeardown(func(error) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Session expired. Run `sessionctl login` to sign in again.")
	}))
	if err != nil {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
		return err
	}
	a.manager = m
	return nil
}

func configureLogging(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if w == nil {
		w = os.Stderr
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}
