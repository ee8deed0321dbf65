package config

import (
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// IssueTemplate allows overriding how created issues are rendered
type IssueTemplate struct {
	Issue struct {
		// SummaryFormat must contain exactly one %s verb, replaced with the
		// sender display name
		SummaryFormat string `toml:"summary_format"`
	} `toml:"issue"`
}

// Validate checks if the IssueTemplate is valid
func (x *IssueTemplate) Validate() error {
	if f := x.Issue.SummaryFormat; f != "" && strings.Count(f, "%s") != 1 {
		return goerr.New("summary_format must contain exactly one %s verb", goerr.V("format", f))
	}
	return nil
}

// LoadIssueTemplate loads issue template overrides from a TOML file
func LoadIssueTemplate(path string) (*IssueTemplate, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read issue template file", goerr.V("path", path))
	}

	var tmpl IssueTemplate
	if err := toml.Unmarshal(data, &tmpl); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML issue template", goerr.V("path", path))
	}

	if err := tmpl.Validate(); err != nil {
		return nil, goerr.Wrap(err, "issue template validation failed", goerr.V("path", path))
	}

	return &tmpl, nil
}
