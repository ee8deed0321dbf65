package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kakehashi/pkg/service/works"
	"github.com/urfave/cli/v3"
)

// Works holds configuration for the LINE WORKS bot and API access
type Works struct {
	botSecret      string
	clientID       string
	clientSecret   string
	serviceAccount string
	privateKey     string
}

func (x *Works) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "works-bot-secret",
			Usage:       "LINE WORKS bot secret (for callback signature verification)",
			Category:    "LINE WORKS",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_WORKS_BOT_SECRET"),
			Destination: &x.botSecret,
		},
		&cli.StringFlag{
			Name:        "works-client-id",
			Usage:       "LINE WORKS OAuth client ID",
			Category:    "LINE WORKS",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_WORKS_CLIENT_ID"),
			Destination: &x.clientID,
		},
		&cli.StringFlag{
			Name:        "works-client-secret",
			Usage:       "LINE WORKS OAuth client secret",
			Category:    "LINE WORKS",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_WORKS_CLIENT_SECRET"),
			Destination: &x.clientSecret,
		},
		&cli.StringFlag{
			Name:        "works-service-account",
			Usage:       "LINE WORKS service account ID (sub claim of the assertion)",
			Category:    "LINE WORKS",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_WORKS_SERVICE_ACCOUNT"),
			Destination: &x.serviceAccount,
		},
		&cli.StringFlag{
			Name:        "works-private-key",
			Usage:       "RSA private key for the JWT assertion (PEM string or file path)",
			Category:    "LINE WORKS",
			Required:    true,
			Sources:     cli.EnvVars("KAKEHASHI_WORKS_PRIVATE_KEY"),
			Destination: &x.privateKey,
		},
	}
}

func (x Works) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_id", x.clientID),
		slog.String("service_account", x.serviceAccount),
		slog.Int("bot_secret.len", len(x.botSecret)),
		slog.Int("client_secret.len", len(x.clientSecret)),
		slog.Int("private_key.len", len(x.privateKey)),
	)
}

// BotSecret returns the shared secret for callback signature verification
func (x *Works) BotSecret() string {
	return x.botSecret
}

// PrivateKeyPEM resolves the private key flag to PEM bytes. Inline values may
// carry literal \n sequences (the usual .env encoding); anything without a
// PEM header is treated as a file path.
func (x *Works) PrivateKeyPEM() ([]byte, error) {
	value := x.privateKey

	if !strings.Contains(value, "-----BEGIN") {
		// #nosec G304 - path is provided by the operator via flag/env
		data, err := os.ReadFile(value)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read private key file", goerr.V("path", value))
		}
		return data, nil
	}

	return []byte(strings.ReplaceAll(value, `\n`, "\n")), nil
}

// Configure creates the token source and directory clients
func (x *Works) Configure() (*works.TokenSource, *works.Directory, error) {
	pem, err := x.PrivateKeyPEM()
	if err != nil {
		return nil, nil, err
	}

	tokens, err := works.NewTokenSource(x.clientID, x.clientSecret, x.serviceAccount, pem)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create token source")
	}

	return tokens, works.NewDirectory(), nil
}
