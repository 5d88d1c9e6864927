package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/memosync/internal"
	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/mcpserver"
	"github.com/starford/memosync/internal/orchestrator"
	pkgconfig "github.com/starford/memosync/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.Root().String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// withApp opens the application for one command and closes it afterwards, which
// also waits for background remote removals.
func withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := internal.Open(internal.WithConfig(cfg), internal.WithVersion(version))
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(_ context.Context, _ *cli.Command, app *internal.App) error {
	app.Sync.StartBackground()
	return mcpserver.New(app.Notes, version).ServeStdio()
}

// exitMessage renders err for the terminal.
func exitMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalid):
		return "memosync: " + err.Error()
	case errors.Is(err, apperr.ErrBusy):
		return "memosync: a sync is already running, try again shortly"
	default:
		return orchestrator.Message("memosync", err)
	}
}

func main() {
	cmd := &cli.Command{
		Name:      "memosync",
		Usage:     "Local-first notes synchronized with a remote repository",
		Version:   version,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Action:    serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the local HTTP API with live events and metrics",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve notes to MCP clients over stdio",
				Action: withApp(serveMCP),
			},
			newCommand(),
			{
				Name:   "list",
				Usage:  "List notes, newest first",
				Action: withApp(listNotes),
			},
			{
				Name:      "show",
				Usage:     "Print the body of a note",
				ArgsUsage: "<slug>",
				Action:    withApp(showNote),
			},
			{
				Name:      "edit",
				Usage:     "Replace the body of a note and push it",
				ArgsUsage: "<slug> [body] (reads stdin when body is omitted)",
				Action:    withApp(editNote),
			},
			{
				Name:      "rm",
				Usage:     "Delete a note here and on the remote",
				ArgsUsage: "<slug>",
				Action:    withApp(removeNote),
			},
			{
				Name:   "pull",
				Usage:  "Pull the remote repository into the local collection",
				Action: withApp(pullNotes),
			},
			{
				Name:      "push",
				Usage:     "Push one note to the remote repository",
				ArgsUsage: "<slug>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "if-match",
						Usage: "Version token to present instead of the stored one",
					},
				},
				Action: withApp(pushNote),
			},
			settingsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, exitMessage(err))
		os.Exit(1)
	}
}
