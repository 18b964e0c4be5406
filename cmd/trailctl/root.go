package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonwraymond/breadcrumb/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errUsage marks errors caused by bad input rather than a failing system.
var errUsage = errors.New("usage")

func exitCode(err error) int {
	if errors.Is(err, errUsage) || errors.Is(err, config.ErrInvalidConfig) {
		return exitUserError
	}
	return exitSysError
}

// cliState carries the loaded runtime between PersistentPreRunE and the
// subcommands.
type cliState struct {
	configFile string
	app        *app
}

// flagBindings maps config keys to persistent flag names.
var flagBindings = map[string]string{
	"wiki.fixture":      "fixture",
	"cache.backend":     "backend",
	"cache.path":        "cache-path",
	"observe.log_level": "log-level",
}

// execute runs root and closes the app afterwards. Cobra skips
// PersistentPostRunE when a command fails, so the close happens here.
func (s *cliState) execute(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if cerr := s.close(ctx); err == nil {
		err = cerr
	}
	return err
}

func (s *cliState) close(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := s.app.Close(ctx)
	s.app = nil
	return err
}

func newRootCmd() (*cobra.Command, *cliState) {
	state := &cliState{}

	root := &cobra.Command{
		Use:           "trailctl",
		Short:         "Render breadcrumb trails and manage their ancestor store",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(state.configFile, bindFlags(cmd))
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			state.app = a
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&state.configFile, "config", "", "config file (YAML)")
	flags.String("fixture", "", "wiki fixture file (YAML)")
	flags.String("backend", "", "ancestor store backend: memory, badger, or sqlite")
	flags.String("cache-path", "", "ancestor store path for badger or sqlite")
	flags.String("log-level", "", "log level: debug, info, warn, or error")

	root.AddCommand(
		newRenderCmd(state),
		newSaveCmd(state),
		newShowCacheCmd(state),
		newServeCmd(state),
		newHealthCmd(state),
		newVersionCmd(),
	)
	return root, state
}

// bindFlags binds explicitly set persistent flags over file and environment
// values.
func bindFlags(cmd *cobra.Command) config.Option {
	return func(v *viper.Viper) error {
		for key, name := range flagBindings {
			f := cmd.Flags().Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind --%s: %w", name, err)
			}
		}
		return nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "trailctl", version)
		},
	}
}
