package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kakehashi/pkg/domain/model"
	"github.com/secmon-lab/kakehashi/pkg/utils/errutil"
	"github.com/secmon-lab/kakehashi/pkg/utils/logging"
	"github.com/secmon-lab/kakehashi/pkg/utils/safe"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const callbackBodyKey contextKey = "callback_body"

// verifyWorksSignature checks the X-Works-Signature value against the
// base64-encoded HMAC-SHA256 of the raw body using the bot secret. The
// comparison is constant time.
func verifyWorksSignature(botSecret, signature string, body []byte) error {
	mac := hmac.New(sha256.New, []byte(botSecret))
	if _, err := mac.Write(body); err != nil {
		return goerr.Wrap(err, "failed to compute HMAC")
	}
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return goerr.New("signature mismatch")
	}

	return nil
}

// WorksSignatureMiddleware creates a middleware that verifies LINE WORKS
// callback signatures. A missing header is a 400, a mismatch is a 401;
// the handler behind it only ever sees verified requests.
func WorksSignatureMiddleware(botSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			signature := r.Header.Get("X-Works-Signature")
			if signature == "" {
				errutil.HandleHTTP(ctx, w, goerr.New("missing X-Works-Signature header"), http.StatusBadRequest)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}
			defer safe.Close(ctx, r.Body)

			if err := verifyWorksSignature(botSecret, signature, body); err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "callback signature verification failed"), http.StatusUnauthorized)
				return
			}

			// Store the verified body in the context and restore it to the request
			ctx = context.WithValue(ctx, callbackBodyKey, body)
			r.Body = io.NopCloser(bytes.NewReader(body))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MessageHandler forwards a verified text message downstream
type MessageHandler interface {
	HandleTextMessage(ctx context.Context, userID, text string) error
}

// WebhookHandler dispatches LINE WORKS callback events
type WebhookHandler struct {
	message MessageHandler
}

// NewWebhookHandler creates a new callback handler
func NewWebhookHandler(message MessageHandler) *WebhookHandler {
	return &WebhookHandler{
		message: message,
	}
}

// ServeHTTP handles a verified callback request. Once past signature
// verification the response is always 200: downstream failures are logged
// and absorbed so the platform never retries a delivered event.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := ctx.Value(callbackBodyKey).([]byte)
	if !ok {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
			return
		}
		body = raw
	}

	ev, err := model.ParseEvent(body)
	if err != nil {
		// Signature already verified; degrade malformed payloads to a no-op
		logging.From(ctx).Warn("ignoring unparsable callback event", "error", err.Error())
		writeOK(ctx, w)
		return
	}

	switch {
	case ev.Type == model.EventTypeURLVerification:
		// Echo the challenge verbatim, no downstream calls
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		safe.Write(ctx, w, []byte(ev.Challenge))

	case ev.IsTextMessage():
		deliveryID := uuid.New().String()
		ctx = logging.With(ctx, logging.From(ctx).With("delivery_id", deliveryID))

		logging.From(ctx).Info("received text message event",
			"user_id", ev.Source.UserID,
			"text_len", len(ev.Content.Text),
		)

		if err := h.message.HandleTextMessage(ctx, ev.Source.UserID, ev.Content.Text); err != nil {
			// Fail-soft: the upstream platform always gets a 200 once the
			// signature checks out
			errutil.Handle(ctx, err, "failed to forward message to issue tracker")
		}
		writeOK(ctx, w)

	default:
		logging.From(ctx).Info("ignoring callback event", "type", ev.Type)
		writeOK(ctx, w)
	}
}

func writeOK(ctx context.Context, w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	safe.Write(ctx, w, []byte("OK"))
}
