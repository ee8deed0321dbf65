package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kakehashi/pkg/service/backlog"
	"github.com/urfave/cli/v3"
)

// Backlog holds configuration for the Backlog space and issue defaults
type Backlog struct {
	spaceID     string
	apiKey      string
	projectID   string
	issueTypeID string
	priorityID  string
}

func (x *Backlog) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backlog-space-id",
			Usage:       "Backlog space ID ({space}.backlog.jp)",
			Category:    "Backlog",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_BACKLOG_SPACE_ID"),
			Destination: &x.spaceID,
		},
		&cli.StringFlag{
			Name:        "backlog-api-key",
			Usage:       "Backlog API key",
			Category:    "Backlog",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_BACKLOG_API_KEY"),
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "backlog-project-id",
			Usage:       "Backlog project ID for created issues",
			Category:    "Backlog",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_BACKLOG_PROJECT_ID"),
			Destination: &x.projectID,
		},
		&cli.StringFlag{
			Name:        "backlog-issue-type-id",
			Usage:       "Backlog issue type ID for created issues",
			Category:    "Backlog",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_BACKLOG_ISSUE_TYPE_ID"),
			Destination: &x.issueTypeID,
		},
		&cli.StringFlag{
			Name:        "backlog-priority-id",
			Usage:       "Backlog priority ID for created issues",
			Category:    "Backlog",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_BACKLOG_PRIORITY_ID"),
			Destination: &x.priorityID,
		},
	}
}

func (x Backlog) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("space_id", x.spaceID),
		slog.String("project_id", x.projectID),
		slog.String("issue_type_id", x.issueTypeID),
		slog.String("priority_id", x.priorityID),
		slog.Int("api_key.len", len(x.apiKey)),
	)
}

// Configure creates the Backlog client
func (x *Backlog) Configure() (*backlog.Client, error) {
	client, err := backlog.New(x.spaceID, x.apiKey, x.projectID, x.issueTypeID, x.priorityID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create backlog client")
	}
	return client, nil
}
