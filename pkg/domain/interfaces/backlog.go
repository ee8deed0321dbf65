package interfaces

import (
	"context"

	"github.com/secmon-lab/kakehashi/pkg/domain/model"
)

// IssueCreator registers new issues in the issue tracker.
// CreateIssue returns the key of the created issue.
type IssueCreator interface {
	CreateIssue(ctx context.Context, issue *model.Issue) (string, error)
}
