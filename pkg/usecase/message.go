package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kakehashi/pkg/domain/interfaces"
	"github.com/secmon-lab/kakehashi/pkg/domain/model"
	"github.com/secmon-lab/kakehashi/pkg/utils/errutil"
	"github.com/secmon-lab/kakehashi/pkg/utils/logging"
)

// DefaultSummaryFormat builds the issue summary from the sender display name
const DefaultSummaryFormat = "【LINE WORKS】%sさんからのメッセージ"

// Placeholder display names used when the sender cannot be resolved. The
// variants preserve the failure cause for the issue reader.
const (
	placeholderUnknown     = "不明なユーザー"
	placeholderTokenError  = "不明なユーザー (Token Error)"
	placeholderLookupError = "不明なユーザー (API Error)"
)

// Message forwards LINE WORKS text messages to the issue tracker
type Message struct {
	tokens        interfaces.TokenSource
	directory     interfaces.Directory
	issues        interfaces.IssueCreator
	summaryFormat string
}

// Option is a functional option for Message
type Option func(*Message)

// WithSummaryFormat overrides the issue summary format. The format must
// contain a single %s verb for the sender display name.
func WithSummaryFormat(format string) Option {
	return func(x *Message) {
		if format != "" {
			x.summaryFormat = format
		}
	}
}

// NewMessage creates a Message use case
func NewMessage(tokens interfaces.TokenSource, directory interfaces.Directory, issues interfaces.IssueCreator, opts ...Option) *Message {
	x := &Message{
		tokens:        tokens,
		directory:     directory,
		issues:        issues,
		summaryFormat: DefaultSummaryFormat,
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// HandleTextMessage creates an issue for a text message from the given user.
// Sender resolution is fail-soft: lookup failures degrade to a placeholder
// name and the issue is still created. Only issue creation failures are
// returned, and the webhook layer downgrades those to a log entry.
func (uc *Message) HandleTextMessage(ctx context.Context, userID, text string) error {
	name := uc.displayName(ctx, userID)

	issue := &model.Issue{
		Summary:     fmt.Sprintf(uc.summaryFormat, name),
		Description: text,
	}

	key, err := uc.issues.CreateIssue(ctx, issue)
	if err != nil {
		return goerr.Wrap(err, "failed to create issue", goerr.V("summary", issue.Summary))
	}

	logging.From(ctx).Info("issue created", "issue_key", key, "user_id", userID)
	return nil
}

// displayName resolves the sender display name, degrading to a placeholder
// on any failure along the token → lookup chain.
func (uc *Message) displayName(ctx context.Context, userID string) string {
	token, err := uc.tokens.AccessToken(ctx)
	if err != nil {
		errutil.Handle(ctx, err, "failed to get access token for user lookup")
		return placeholderTokenError
	}

	name, err := uc.directory.DisplayName(ctx, token, userID)
	if err != nil {
		errutil.Handle(ctx, err, "failed to look up user display name")
		return placeholderLookupError
	}
	if name == "" {
		return placeholderUnknown
	}

	return name
}
