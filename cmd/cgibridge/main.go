// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command cgibridge serves CGI requests with one of its built-in dispatchers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/z5labs/cgibridge"
	"github.com/z5labs/cgibridge/app"
	"github.com/z5labs/cgibridge/config"
	"github.com/z5labs/cgibridge/env"
	"github.com/z5labs/cgibridge/internal/maskslog"
	"github.com/z5labs/cgibridge/internal/otelslog"
	"github.com/z5labs/cgibridge/runtime/oneshot"
	"github.com/z5labs/cgibridge/runtime/persistent"
	"github.com/z5labs/cgibridge/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	modeCGI        = "cgi"
	modePersistent = "persistent"
)

func main() {
	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(context.Background())
	os.Exit(cgibridge.ExitCode(err))
}

type streams struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	s := streams{stdin: stdin, stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:           "cgibridge",
		Short:         "Bridge CGI requests to structured request handlers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	fs := cmd.PersistentFlags()
	fs.String("config", "", "path to a YAML config file, rendered as a text/template first")
	fs.String("env-file", "", "path to a .env file with "+EnvPrefix+" prefixed settings")
	fs.Int64("max-body-size", 0, "maximum request body size in bytes")
	fs.String("dispatcher", "", "built-in dispatcher: env, kv, upstream or not_found")
	fs.String("upstream", "", "base url of the upstream dispatcher")
	fs.String("otel-exporter", "", "trace exporter: none, stdout or otlp")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	mustAnnotate(fs, "upstream", "upstream.url")
	mustAnnotate(fs, "otel-exporter", "otel.exporter")
	mustAnnotate(fs, "log-level", "log.level")

	cmd.AddCommand(
		newModeCmd(s, "cgi", modeCGI, "Handle exactly one request described by the environment"),
		newModeCmd(s, "serve", modePersistent, "Handle a sequence of framed requests over stdin and stdout"),
	)
	return cmd
}

func mustAnnotate(fs *pflag.FlagSet, name, key string) {
	err := config.Annotate(fs, name, key)
	if err != nil {
		panic(err)
	}
}

func newModeCmd(s streams, use, mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, err := sources(cmd.Flags(), mode)
			if err != nil {
				return err
			}

			err = cgibridge.Run(cmd.Context(), buildApp(s), srcs...)
			if err != nil {
				fmt.Fprintln(s.stderr, err)
			}
			return err
		},
	}
}

// sources lists every config source in increasing precedence.
func sources(fs *pflag.FlagSet, mode string) ([]config.Source, error) {
	srcs := []config.Source{
		defaults(),
		config.Map{"mode": mode},
	}

	path, err := fs.GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		f := config.NewFileReader(os.DirFS(filepath.Dir(path)), filepath.Base(path))
		srcs = append(srcs, config.FromYaml(config.RenderTextTemplate(f)))
	}

	envFile, err := fs.GetString("env-file")
	if err != nil {
		return nil, err
	}
	if envFile != "" {
		f := config.NewFileReader(os.DirFS(filepath.Dir(envFile)), filepath.Base(envFile))
		srcs = append(srcs, config.FromDotEnv(f, EnvPrefix))
	}

	srcs = append(
		srcs,
		config.FromEnv(EnvPrefix),
		config.FromFlags(fs),
	)
	return srcs, nil
}

func buildApp(s streams) cgibridge.AppBuilder[Config] {
	return cgibridge.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (cgibridge.App, error) {
		logHandler := otelslog.NewHandler(maskslog.NewHandler(
			slog.NewJSONHandler(s.stderr, &slog.HandlerOptions{
				Level: cfg.Log.Level,
			}),
			maskslog.Attr("target", maskslog.StripQuery),
			maskslog.Attr("url", maskslog.StripQuery),
		))

		shutdown, err := telemetry.Init(ctx, cfg.OTel)
		if err != nil {
			return nil, err
		}

		environ := env.FromOS()
		d, err := buildDispatcher(cfg, environ, logHandler)
		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}

		var rt cgibridge.App
		switch cfg.Mode {
		case modeCGI:
			rt = oneshot.New(
				d,
				oneshot.Environment(environ),
				oneshot.Stdin(s.stdin),
				oneshot.Stdout(s.stdout),
				oneshot.MaxBodySize(cfg.MaxBodySize),
				oneshot.LogHandler(logHandler),
			)
		case modePersistent:
			rt = persistent.New(
				d,
				stdio{Reader: s.stdin, Writer: s.stdout},
				persistent.MaxBodySize(cfg.MaxBodySize),
				persistent.MaxHeaderBytes(cfg.MaxHeaderBytes),
				persistent.Protocol(cfg.Protocol),
				persistent.ReadBufferSize(cfg.ReadBufferSize),
				persistent.LogHandler(logHandler),
			)
			rt = app.WithSignalNotifications(rt, os.Interrupt, syscall.SIGTERM)
		default:
			return nil, errors.Join(UnknownModeError{Mode: cfg.Mode}, shutdown(ctx))
		}

		rt = app.PostRun(rt, app.HookFunc(shutdown))
		return app.Recover(rt), nil
	})
}

type stdio struct {
	io.Reader
	io.Writer
}

// UnknownModeError is returned for a mode other than cgi or persistent.
type UnknownModeError struct {
	Mode string
}

// Error implements the [error] interface.
func (e UnknownModeError) Error() string {
	return fmt.Sprintf("unknown mode: %q", e.Mode)
}
