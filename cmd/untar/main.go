package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const description = `untar reads a tar archive from a file, stdin, an HTTP(S) URL or an S3
object and hands it to a worker that decodes it out of process. The entries
the worker reports are filtered and printed as a text, json or yaml report.

Run a one-off extraction with "untar extract ARCHIVE", or describe sources,
worker and output in a job file and run it with "untar extract --job FILE".`

func newApp(sess *session) *cli.Command {
	return &cli.Command{
		Name:        "untar",
		Usage:       "List and extract tar archives in a sandboxed decoder process",
		Description: description,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log engine and worker internals at debug level in console format",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Minimum level of diagnostics written to stderr (debug, info, warn, error)",
				Sources: cli.EnvVars("UNTAR_LOG_LEVEL"),
				Action: func(ctx context.Context, command *cli.Command, s string) error {
					if _, err := zap.ParseAtomicLevel(s); err != nil {
						return fmt.Errorf("invalid log level %s: %w", s, err)
					}
					return nil
				},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   string(logFormatJSON),
				Usage:   "Encoding of diagnostics on stderr (json, console)",
				Sources: cli.EnvVars("UNTAR_LOG_FORMAT"),
				Action: func(ctx context.Context, command *cli.Command, s string) error {
					_, err := parseLogFormat(s)
					return err
				},
			},
		},
		Commands: []*cli.Command{
			extractCommand,
			validateCommand,
			workerCommand,
			versionCommand,
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			format, err := parseLogFormat(command.String("log-format"))
			if err != nil {
				return nil, err
			}
			logger, err := newLogger(logOptions{
				Level:   command.String("log-level"),
				Format:  format,
				Verbose: command.Bool("verbose"),
			})
			if err != nil {
				return nil, err
			}

			sess.logger = logger
			sess.interactive = stdoutIsInteractive(os.Getenv, os.Stdout.Fd())
			logger.Debug("session started",
				zap.String("log_level", command.String("log-level")),
				zap.Bool("interactive", sess.interactive),
			)
			return withSession(ctx, sess), nil
		},
		ExitErrHandler: func(ctx context.Context, command *cli.Command, err error) {
			if err == nil {
				return
			}
			if sess.logger != nil {
				sess.logger.Fatal("untar failed", zap.Error(err))
			}
			log.Fatalf("untar failed: %v", err)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := &session{}
	defer sess.close()

	_ = newApp(sess).Run(ctx, os.Args)
}
