package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/starford/memosync/internal"
	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/noteservice"
	"github.com/starford/memosync/internal/orchestrator"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a note and push it",
		ArgsUsage: "[body] (reads stdin when body is omitted and input is piped)",
		Action:    withApp(createNote),
	}
}

// bodyArg returns the body given in args from index from on, or piped stdin when there
// are none. With required set, a terminal stdin and no args is an error rather than an
// empty body.
func bodyArg(cmd *cli.Command, from int, required bool) (string, error) {
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	return readBody(cmd.Args().Slice(), from, os.Stdin, interactive, required)
}

func readBody(args []string, from int, in io.Reader, interactive, required bool) (string, error) {
	if len(args) > from {
		return strings.Join(args[from:], " "), nil
	}
	if interactive {
		if required {
			return "", fmt.Errorf("body or piped stdin required: %w", apperr.ErrInvalid)
		}
		return "", nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func slugArg(cmd *cli.Command) (string, error) {
	slug := cmd.Args().First()
	if slug == "" {
		return "", fmt.Errorf("slug is required: %w", apperr.ErrInvalid)
	}
	return slug, nil
}

// pushNow pushes slug when the network is reachable and reports a failure without
// failing the command; the note is already saved locally.
func pushNow(ctx context.Context, out, errOut io.Writer, app *internal.App, slug string) {
	if !app.Sync.Online(ctx) {
		fmt.Fprintln(errOut, "Offline: changes kept on this device, run pull or push when connected")
		return
	}
	n, err := app.Notes.Push(ctx, slug, "")
	if err != nil {
		fmt.Fprintln(errOut, orchestrator.Message("Save failed", err)+" (kept locally)")
		return
	}
	fmt.Fprintf(out, "pushed %s (%s)\n", n.Slug, shortToken(n.VersionToken))
}

func createNote(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	body, err := bodyArg(cmd, 0, false)
	if err != nil {
		return err
	}
	n, err := app.Notes.Create(ctx, body)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, n.Slug)
	if body != "" {
		pushNow(ctx, cmd.Root().Writer, cmd.Root().ErrWriter, app, n.Slug)
	}
	return nil
}

func listNotes(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	items, err := app.Notes.List(ctx)
	if err != nil {
		return err
	}
	printList(cmd.Root().Writer, items)
	return nil
}

func printList(w io.Writer, items []noteservice.ListItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tTITLE\tMODIFIED\tSYNCED")
	for _, it := range items {
		synced := "no"
		if it.Synced {
			synced = "yes"
		}
		modified := "-"
		if !it.LastModified.IsZero() {
			modified = humanize.Time(it.LastModified)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Slug, it.Title, modified, synced)
	}
	tw.Flush()
}

func showNote(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	slug, err := slugArg(cmd)
	if err != nil {
		return err
	}
	n, err := app.Notes.Get(ctx, slug)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, n.Body)
	return nil
}

func editNote(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	slug, err := slugArg(cmd)
	if err != nil {
		return err
	}
	body, err := bodyArg(cmd, 1, true)
	if err != nil {
		return err
	}
	if _, err := app.Notes.Update(ctx, slug, body); err != nil {
		return err
	}
	pushNow(ctx, cmd.Root().Writer, cmd.Root().ErrWriter, app, slug)
	return nil
}

func removeNote(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	slug, err := slugArg(cmd)
	if err != nil {
		return err
	}
	if err := app.Notes.Delete(ctx, slug); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "deleted "+slug)
	return nil
}

func pullNotes(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	items, err := app.Notes.Sync(ctx)
	if err != nil {
		return err
	}
	printList(cmd.Root().Writer, items)
	return nil
}

func pushNote(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	slug, err := slugArg(cmd)
	if err != nil {
		return err
	}
	n, err := app.Notes.Push(ctx, slug, cmd.String("if-match"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "pushed %s (%s)\n", n.Slug, n.VersionToken)
	return nil
}

func shortToken(token string) string {
	if len(token) > 7 {
		return token[:7]
	}
	return token
}
