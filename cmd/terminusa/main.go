// Package main is the entry point for the Terminusa command line client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"terminusa/internal/config"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Cancel in-flight work on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configDir string
	handle    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	var a *app

	root := &cobra.Command{
		Use:          "terminusa",
		Short:        "Terminusa economy client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsApp(cmd) {
				return nil
			}
			cfg, err := config.Load(opts.configDir)
			if err != nil {
				return err
			}
			setLogLevel(cfg.Log.Level)
			log.Debug().Str("driver", cfg.Database.Driver).Msg("Configuration loaded")

			a, err = newApp(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config", "config", "directory holding config.yaml")
	root.PersistentFlags().StringVar(&opts.handle, "handle", os.Getenv(handleEnv), "account handle (or "+handleEnv+")")

	// Commands resolve the app lazily; it only exists once PersistentPreRunE ran.
	appFn := func() *app { return a }
	root.AddCommand(
		newRegisterCmd(opts, appFn),
		newStatusCmd(opts, appFn),
		newMineCmd(opts, appFn),
		newFightCmd(opts, appFn),
		newMarketCmd(opts, appFn),
		newAchievementsCmd(opts, appFn),
		newHistoryCmd(opts, appFn),
	)
	return root
}

// needsApp reports whether cmd touches the store; help and completion do not.
func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd, "completion":
			return false
		}
	}
	return true
}

// setLogLevel applies the configured level; unknown values keep info.
func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
