package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/linkmeta/internal/links"
	"github.com/dtnitsch/linkmeta/internal/resolve"
	"github.com/dtnitsch/linkmeta/internal/serve"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	folderFlag := &cli.StringFlag{
		Name:     "folder",
		Aliases:  []string{"f"},
		Usage:    "folder id",
		Required: true,
	}

	return &cli.App{
		Name:  "linkmeta",
		Usage: "resolve link previews (title, description, image) and keep them in folders",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"LINKMETA_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite database path",
				EnvVars: []string{"LINKMETA_DB"},
			},
			&cli.StringFlag{
				Name:  "public-url",
				Usage: "favicon endpoint written into links without an image",
			},
			&cli.BoolFlag{
				Name:  "allow-private",
				Usage: "allow fetching loopback and private network addresses",
			},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
			&cli.BoolFlag{Name: "debug", Usage: "log debug output"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve.ServeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address", EnvVars: []string{"LINKMETA_ADDR"}},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "concurrent resolutions during import"},
				},
			},
			{
				Name:      "resolve",
				Usage:     "print the metadata for one or more URLs",
				ArgsUsage: "<url>...",
				Action:    resolve.ResolveAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "strict", Usage: "no fallback; report the failure instead"},
					&cli.BoolFlag{Name: "pretty", Usage: "indent JSON output"},
				},
			},
			{
				Name:  "folder",
				Usage: "manage folders",
				Subcommands: []*cli.Command{
					{Name: "add", Usage: "create a folder", ArgsUsage: "<name>", Action: links.FolderAddAction},
					{Name: "list", Usage: "list folders", Action: links.FolderListAction},
				},
			},
			{
				Name:  "link",
				Usage: "manage links",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "resolve a URL and store it",
						ArgsUsage: "<url>",
						Action:    links.LinkAddAction,
						Flags: []cli.Flag{
							folderFlag,
							&cli.StringFlag{Name: "note", Usage: "note attached to the link"},
						},
					},
					{
						Name:   "list",
						Usage:  "list links in a folder, newest first",
						Action: links.LinkListAction,
						Flags:  []cli.Flag{folderFlag},
					},
					{
						Name:      "refetch",
						Usage:     "re-resolve a stored link (up to 3 attempts)",
						ArgsUsage: "<link-id>",
						Action:    links.LinkRefetchAction,
					},
				},
			},
			{
				Name:      "import",
				Usage:     "bulk add newline-separated URLs",
				ArgsUsage: "[file|-]",
				Action:    links.ImportAction,
				Flags: []cli.Flag{
					folderFlag,
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "concurrent resolutions"},
				},
			},
			{
				Name:   "refresh",
				Usage:  "re-resolve every link in a folder, one at a time",
				Action: links.RefreshAction,
				Flags:  []cli.Flag{folderFlag},
			},
		},
	}
}
