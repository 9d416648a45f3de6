package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-shop-client/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli carries what PersistentPreRunE loads for every command.
type cli struct {
	envFile string
	cfg     config.Config
	logger  zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "shopctl",
		Short: "Command line client for the garment shop backend",
		Long: `shopctl signs in to the shop backend, keeps the session's tokens in the
configured token storage and refreshes them as requests need it.

Configuration comes from the environment, optionally loaded from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayAppname(cmd.OutOrStdout(), c.cfg.GetAppName())
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newRolesCmd(c),
		newCustomersCmd(c),
		newServeDemoCmd(c),
	)
	return root
}

func (c *cli) load(logOut io.Writer) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}
	cfg, err := config.New()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = newLogger(logOut, cfg.GetLogLevel())
	return nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
