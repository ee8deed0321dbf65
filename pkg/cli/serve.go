package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/kakehashi/pkg/cli/config"
	httpctrl "github.com/secmon-lab/kakehashi/pkg/controller/http"
	"github.com/secmon-lab/kakehashi/pkg/usecase"
	"github.com/secmon-lab/kakehashi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var issueTemplatePath string
	var sentryDSN string
	var worksCfg config.Works
	var backlogCfg config.Backlog

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":5000",
			Sources:     cli.EnvVars("KAKEHASHI_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "issue-template",
			Usage:       "TOML file overriding how created issues are rendered",
			Sources:     cli.EnvVars("KAKEHASHI_ISSUE_TEMPLATE"),
			Destination: &issueTemplatePath,
		},
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for error reporting (disabled when empty)",
			Sources:     cli.EnvVars("KAKEHASHI_SENTRY_DSN"),
			Destination: &sentryDSN,
		},
	}

	// Add shared config flags
	flags = append(flags, worksCfg.Flags()...)
	flags = append(flags, backlogCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if sentryDSN != "" {
				if err := sentry.Init(sentry.ClientOptions{Dsn: sentryDSN}); err != nil {
					return goerr.Wrap(err, "failed to initialize sentry")
				}
				defer sentry.Flush(2 * time.Second)
				logging.Default().Info("Sentry error reporting enabled")
			}

			tokens, directory, err := worksCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure LINE WORKS clients")
			}

			issues, err := backlogCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure backlog client")
			}

			ucOpts := []usecase.Option{}
			if issueTemplatePath != "" {
				tmpl, err := config.LoadIssueTemplate(issueTemplatePath)
				if err != nil {
					return goerr.Wrap(err, "failed to load issue template")
				}
				ucOpts = append(ucOpts, usecase.WithSummaryFormat(tmpl.Issue.SummaryFormat))
				logging.Default().Info("Issue template loaded", "path", issueTemplatePath)
			}

			uc := usecase.NewMessage(tokens, directory, issues, ucOpts...)

			webhook := httpctrl.NewWebhookHandler(uc)
			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(webhook, worksCfg.BotSecret()),
				ReadHeaderTimeout: 30 * time.Second,
			}

			logging.Default().Info("Configuration loaded",
				"works", worksCfg,
				"backlog", backlogCfg,
			)

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
