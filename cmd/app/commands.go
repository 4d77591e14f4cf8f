package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/adrlens/internal"
	"github.com/starford/adrlens/internal/index"
	"github.com/starford/adrlens/internal/mcpserver"
	"github.com/starford/adrlens/internal/recordservice"
	"github.com/starford/adrlens/internal/render"
	"github.com/starford/adrlens/internal/template"
)

// One-shot commands keep stdout for their output and log to stderr.
func stderrLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// withCore loads the config, opens and syncs the core and runs fn with it.
func withCore(ctx context.Context, cmd *cli.Command, fn func(context.Context, *internal.Config, *internal.Core) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg.App.LogLevel)

	core, err := internal.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	if err := core.Sync(); err != nil {
		logger.Warn("sync failed", slog.String("error", err.Error()))
	}
	return fn(ctx, cfg, core)
}

func colorEnabled(cmd *cli.Command) bool {
	return render.ColorEnabled(os.Stdout, cmd.Bool("no-color"))
}

// vaultPath maps a command-line path to a vault-relative one. Paths outside
// the vault are passed through and rejected by storage.
func vaultPath(core *internal.Core, arg string) string {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return arg
	}
	if rel, ok := core.Store.Rel(abs); ok {
		return rel
	}
	return arg
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a decision record from the configured template",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Vault directory (or a file in it) the record belongs to",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "Date stamp YYYYMMDD (default: today)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			title := strings.Join(cmd.Args().Slice(), " ")
			if strings.TrimSpace(title) == "" {
				return errors.New("new: title is required")
			}
			return withCore(ctx, cmd, func(ctx context.Context, _ *internal.Config, core *internal.Core) error {
				dir := cmd.String("dir")
				if dir != "" {
					dir = vaultPath(core, dir)
				}
				rec, err := core.Records.Create(ctx, recordservice.CreateRequest{
					Title: title,
					Dir:   dir,
					Date:  cmd.String("date"),
				})
				if err != nil {
					return fmt.Errorf("new: %w", err)
				}
				_, err = fmt.Fprintln(os.Stdout, rec.Path)
				return err
			})
		},
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Print record references found in files (stdin when no file is given)",
		ArgsUsage: "[file...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			enabled := colorEnabled(cmd)
			return withCore(ctx, cmd, func(ctx context.Context, _ *internal.Config, core *internal.Core) error {
				if cmd.Args().Len() == 0 {
					data, err := io.ReadAll(os.Stdin)
					if err != nil {
						return fmt.Errorf("scan: read stdin: %w", err)
					}
					return render.Matches(os.Stdout, "-", core.Records.ScanBuffer(ctx, string(data)), enabled)
				}
				for _, arg := range cmd.Args().Slice() {
					res, err := core.Records.ScanFile(ctx, vaultPath(core, arg))
					if err != nil {
						return fmt.Errorf("scan %s: %w", arg, err)
					}
					if err := render.Matches(os.Stdout, res.Path, res.Resolutions, enabled); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Print the record a reference points to",
		ArgsUsage: "<reference>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref := cmd.Args().First()
			if ref == "" {
				return errors.New("resolve: reference is required")
			}
			return withCore(ctx, cmd, func(ctx context.Context, _ *internal.Config, core *internal.Core) error {
				p, err := core.Records.ResolveText(ctx, ref)
				if err != nil {
					if recordservice.IsNotFound(err) {
						return fmt.Errorf("resolve: no record matches %q", ref)
					}
					return err
				}
				_, err = fmt.Fprintln(os.Stdout, p)
				return err
			})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List indexed decision records",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			enabled := colorEnabled(cmd)
			return withCore(ctx, cmd, func(ctx context.Context, _ *internal.Config, core *internal.Core) error {
				recs, err := core.Records.Records(ctx)
				if err != nil {
					return err
				}
				return render.Records(os.Stdout, recs, enabled)
			})
		},
	}
}

func templateCommand() *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "List built-in record templates, marking the configured one",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return render.Names(os.Stdout, template.Names(), cfg.Records.Template, colorEnabled(cmd))
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the MCP tools on stdin/stdout",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withCore(ctx, cmd, func(ctx context.Context, _ *internal.Config, core *internal.Core) error {
				logger := stderrLogger(slog.LevelWarn)

				ctx, cancel := context.WithCancel(ctx)
				g, gCtx := errgroup.WithContext(ctx)
				g.Go(func() error {
					core.Cache.Run(gCtx)
					return nil
				})
				g.Go(func() error {
					return index.Watch(gCtx, core.DB, core.Store, core.Engine, logger, nil)
				})

				srv := mcpserver.New(core.Records, core.Paths)
				err := srv.ServeStdio()
				cancel()
				if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
					logger.Warn("watcher stopped", slog.String("error", werr.Error()))
				}
				return err
			})
		},
	}
}
