package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "stalker",
		Usage:   "Infer what you're doing from device signals and polled services",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: "http://127.0.0.1:3000", EnvVars: []string{"STALKER_SERVER"}, Usage: "Server base URL for client commands"},
			&cli.StringFlag{Name: "password", EnvVars: []string{"STALKER_PASSWORD"}, Usage: "Bearer password for authenticated commands"},
			&cli.StringFlag{Name: "dir", EnvVars: []string{"STALKER_DIR"}, Usage: "Data directory for serve (default ~/.stalker)"},
		},
		Commands: []*cli.Command{
			serveCmd(),
			statusCmd(),
			historyCmd(),
			setCmd(),
			clearCmd(),
			pingCmd(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return cli.Exit(fmt.Sprintf("unknown command %q; run 'stalker --help' for usage", c.Args().First()), 1)
			}
			return serve(c)
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the inference server (default)",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	baseDir := c.String("dir")
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cli.Exit(fmt.Sprintf("could not determine home directory: %v", err), 1)
		}
		baseDir = filepath.Join(home, ".stalker")
	}

	ctx, stop := signalContext()
	defer stop()
	if err := runServe(ctx, baseDir); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

// statusCmd creates the status command.
func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current activity",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "pretty", Aliases: []string{"p"}, Usage: "Render for a terminal instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			var output ops.LatestOutput
			if err := newClient(c).do(c.Context, "GET", "/", nil, false, &output); err != nil {
				return outputError(err)
			}
			if c.Bool("pretty") {
				_, err := fmt.Fprintln(c.App.Writer, renderStatus(&output))
				return err
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past activities, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Maximum entries"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Entries to skip"},
			&cli.BoolFlag{Name: "pretty", Aliases: []string{"p"}, Usage: "Render a table instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			path := fmt.Sprintf("/history?limit=%d&offset=%d", c.Int("limit"), c.Int("offset"))
			var output ops.HistoryOutput
			if err := newClient(c).do(c.Context, "GET", path, nil, false, &output); err != nil {
				return outputError(err)
			}
			if c.Bool("pretty") {
				_, err := fmt.Fprintln(c.App.Writer, renderHistory(&output))
				return err
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// setCmd creates the set command.
func setCmd() *cli.Command {
	return &cli.Command{
		Name:  "set",
		Usage: "Set a manual activity until cleared",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "emoji", Aliases: []string{"e"}, Required: true, Usage: "Status emoji"},
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Required: true, Usage: "Phrase completing \"currently ...\""},
		},
		Action: func(c *cli.Context) error {
			input := ops.SetManualInput{Emoji: c.String("emoji"), Label: c.String("label")}
			var output ops.ActivityOutput
			if err := newClient(c).do(c.Context, "PUT", "/manual", input, true, &output); err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Clear the manual activity",
		Action: func(c *cli.Context) error {
			var output ops.ActivityOutput
			if err := newClient(c).do(c.Context, "DELETE", "/manual", nil, true, &output); err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// pingCmd creates the ping command.
func pingCmd() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Send a device heartbeat",
		ArgsUsage: "<desktop|mobile>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one device is required"))
			}
			device, err := ops.ValidateDevice(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			var output ops.ActivityOutput
			if err := newClient(c).do(c.Context, "POST", "/ping/"+device, nil, true, &output); err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// Helper functions

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
