package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/nhle/recruit-inbox/internal/commands"
	"github.com/nhle/recruit-inbox/internal/logging"
	"github.com/nhle/recruit-inbox/internal/model"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func main() {
	// A .env file is optional.
	_ = godotenv.Load()

	if err := logging.Init(logging.DefaultConfig()); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	flags := &commands.Flags{}
	var deferredLogs *logging.DeferredWriter

	app := &cli.Command{
		Name:      "inbox",
		Usage:     "Follow recruitment conversations and notifications",
		UsageText: "inbox [global options] command [command options]",
		Description: `inbox keeps a local, polled view of your conversation threads and
notifications on the recruitment platform.

Run 'inbox login' to store your API token, then 'inbox watch' for the live view.`,
		Version: version + " (" + commit + ")",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (trace, debug, info, warn, error)",
				Sources:     cli.EnvVars("INBOX_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (optional)",
				Sources:     cli.EnvVars("INBOX_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("INBOX_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := model.LoadConfig(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			level := flags.LogLevel
			if level == "" {
				level = cfg.Log.Level
			}
			file := flags.LogFile
			if file == "" {
				file = cfg.Log.File
			}

			// The live view owns the terminal; hold logs until it exits.
			logCfg := logging.Config{Level: level, Format: "console", File: file}
			if isWatch(c.Args().First()) {
				deferredLogs = &logging.DeferredWriter{}
				logCfg.Deferred = deferredLogs
			}
			if err := logging.Init(logCfg); err != nil {
				return ctx, err
			}

			return ctx, nil
		},
	}

	app = commands.NewWatchCmd(flags).Register(app)
	app = commands.NewThreadsCmd(flags).Register(app)
	app = commands.NewMessagesCmd(flags).Register(app)
	app = commands.NewSendCmd(flags).Register(app)
	app = commands.NewNotificationsCmd(flags).Register(app)
	app = commands.NewCachedCmd(flags).Register(app)
	app = commands.NewConfigCmd(flags).Register(app)
	app = commands.NewLoginCmd(flags).Register(app)

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		exitCode = 1
	}
	stop()

	// Flush deferred logs to console after the live view exits.
	if deferredLogs != nil {
		if err := deferredLogs.Flush(zerolog.ConsoleWriter{Out: os.Stderr}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
		}
	}

	os.Exit(exitCode)
}

func isWatch(name string) bool {
	return name == "watch" || name == "w"
}
