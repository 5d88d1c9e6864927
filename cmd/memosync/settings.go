package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/memosync/internal"
	"github.com/starford/memosync/internal/models"
)

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Manage the remote repository connection",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Connect a repository",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "Repository owner", Required: true},
					&cli.StringFlag{Name: "repo", Usage: "Repository name", Required: true},
					&cli.StringFlag{
						Name:     "token",
						Usage:    "Access token",
						Required: true,
						Sources:  cli.EnvVars("MEMOSYNC_TOKEN"),
					},
				},
				Action: withApp(setSettings),
			},
			{
				Name:   "show",
				Usage:  "Print the connection with the token masked",
				Action: withApp(showSettings),
			},
			{
				Name:   "clear",
				Usage:  "Disconnect the repository",
				Action: withApp(clearSettings),
			},
		},
	}
}

func setSettings(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	s := models.Settings{
		Owner: cmd.String("owner"),
		Repo:  cmd.String("repo"),
		Token: cmd.String("token"),
	}
	if err := app.Notes.SaveSettings(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "connected %s/%s\n", s.Owner, s.Repo)
	return nil
}

func showSettings(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	s, err := app.Notes.Settings(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Fprintln(cmd.Root().Writer, "not connected")
		return nil
	}
	fmt.Fprintf(cmd.Root().Writer, "owner: %s\nrepo:  %s\ntoken: %s\n", s.Owner, s.Repo, s.Token)
	return nil
}

func clearSettings(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	if err := app.Notes.ClearSettings(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "disconnected")
	return nil
}
