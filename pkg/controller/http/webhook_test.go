package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	httpctrl "github.com/secmon-lab/kakehashi/pkg/controller/http"
)

// Export the private function for testing
var VerifyWorksSignature = httpctrl.VerifyWorksSignature

// computeWorksSignature computes the callback signature for testing
func computeWorksSignature(botSecret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(botSecret))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// messageRecorder is a MessageHandler stub that records invocations
type messageRecorder struct {
	calls  int
	userID string
	text   string
	err    error
}

func (x *messageRecorder) HandleTextMessage(ctx context.Context, userID, text string) error {
	x.calls++
	x.userID = userID
	x.text = text
	return x.err
}

func TestVerifyWorksSignature(t *testing.T) {
	botSecret := "test-bot-secret"
	body := []byte(`{"type":"message","source":{"userId":"u1"},"content":{"type":"text","text":"hello"}}`)

	t.Run("valid signature", func(t *testing.T) {
		signature := computeWorksSignature(botSecret, body)

		if err := VerifyWorksSignature(botSecret, signature, body); err != nil {
			t.Errorf("expected no error, got: %v", err)
		}
	})

	t.Run("invalid signature", func(t *testing.T) {
		if err := VerifyWorksSignature(botSecret, "aW52YWxpZA==", body); err == nil {
			t.Error("expected error for invalid signature, got nil")
		}
	})

	t.Run("single bit flip in body is rejected", func(t *testing.T) {
		signature := computeWorksSignature(botSecret, body)

		mutated := bytes.Clone(body)
		mutated[0] ^= 0x01

		if err := VerifyWorksSignature(botSecret, signature, mutated); err == nil {
			t.Error("expected error for mutated body, got nil")
		}
	})

	t.Run("single bit flip in signature is rejected", func(t *testing.T) {
		raw, err := base64.StdEncoding.DecodeString(computeWorksSignature(botSecret, body))
		if err != nil {
			t.Fatalf("failed to decode signature: %v", err)
		}
		raw[0] ^= 0x01
		mutated := base64.StdEncoding.EncodeToString(raw)

		if err := VerifyWorksSignature(botSecret, mutated, body); err == nil {
			t.Error("expected error for mutated signature, got nil")
		}
	})

	t.Run("different secret is rejected", func(t *testing.T) {
		signature := computeWorksSignature("wrong-secret", body)

		if err := VerifyWorksSignature(botSecret, signature, body); err == nil {
			t.Error("expected error when using wrong secret, got nil")
		}
	})
}

func TestCallbackEndpoint(t *testing.T) {
	botSecret := "test-bot-secret"

	post := func(t *testing.T, rec *messageRecorder, body []byte, sign bool) *httptest.ResponseRecorder {
		t.Helper()

		server := httpctrl.New(httpctrl.NewWebhookHandler(rec), botSecret)

		req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
		if sign {
			req.Header.Set("X-Works-Signature", computeWorksSignature(botSecret, body))
		}

		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		return w
	}

	t.Run("missing signature header returns 400 with no downstream calls", func(t *testing.T) {
		rec := &messageRecorder{}
		body := []byte(`{"type":"message","source":{"userId":"u1"},"content":{"type":"text","text":"hello"}}`)

		w := post(t, rec, body, false)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		if rec.calls != 0 {
			t.Errorf("expected no downstream calls, got %d", rec.calls)
		}
	})

	t.Run("signature mismatch returns 401 with no downstream calls", func(t *testing.T) {
		rec := &messageRecorder{}
		body := []byte(`{"type":"message","source":{"userId":"u1"},"content":{"type":"text","text":"hello"}}`)

		server := httpctrl.New(httpctrl.NewWebhookHandler(rec), botSecret)
		req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
		req.Header.Set("X-Works-Signature", computeWorksSignature("wrong-secret", body))

		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
		}
		if rec.calls != 0 {
			t.Errorf("expected no downstream calls, got %d", rec.calls)
		}
	})

	t.Run("url_verification echoes the challenge verbatim", func(t *testing.T) {
		rec := &messageRecorder{}
		body := []byte(`{"type":"url_verification","challenge":"challenge-token-xyz"}`)

		w := post(t, rec, body, true)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if got := w.Body.String(); got != "challenge-token-xyz" {
			t.Errorf("expected challenge echoed verbatim, got %q", got)
		}
		if rec.calls != 0 {
			t.Errorf("expected no downstream calls, got %d", rec.calls)
		}
	})

	t.Run("text message is forwarded and answered with 200 OK", func(t *testing.T) {
		rec := &messageRecorder{}
		body := []byte(`{"type":"message","source":{"userId":"u1"},"content":{"type":"text","text":"hello"}}`)

		w := post(t, rec, body, true)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if got := w.Body.String(); got != "OK" {
			t.Errorf("expected body OK, got %q", got)
		}
		if rec.calls != 1 {
			t.Fatalf("expected 1 downstream call, got %d", rec.calls)
		}
		if rec.userID != "u1" || rec.text != "hello" {
			t.Errorf("unexpected forwarded message: userID=%q text=%q", rec.userID, rec.text)
		}
	})

	t.Run("downstream failure still answers 200 OK", func(t *testing.T) {
		rec := &messageRecorder{err: errors.New("tracker is down")}
		body := []byte(`{"type":"message","source":{"userId":"u1"},"content":{"type":"text","text":"hello"}}`)

		w := post(t, rec, body, true)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if got := w.Body.String(); got != "OK" {
			t.Errorf("expected body OK, got %q", got)
		}
		if rec.calls != 1 {
			t.Errorf("expected 1 downstream call, got %d", rec.calls)
		}
	})

	t.Run("non-text message is a 200 no-op", func(t *testing.T) {
		rec := &messageRecorder{}
		body := []byte(`{"type":"message","source":{"userId":"u1"},"content":{"type":"image"}}`)

		w := post(t, rec, body, true)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if rec.calls != 0 {
			t.Errorf("expected no downstream calls, got %d", rec.calls)
		}
	})

	t.Run("unknown event type is a 200 no-op", func(t *testing.T) {
		rec := &messageRecorder{}
		body := []byte(`{"type":"joined"}`)

		w := post(t, rec, body, true)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if rec.calls != 0 {
			t.Errorf("expected no downstream calls, got %d", rec.calls)
		}
	})

	t.Run("malformed JSON with valid signature is a 200 no-op", func(t *testing.T) {
		rec := &messageRecorder{}
		body := []byte(`{not json`)

		w := post(t, rec, body, true)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if rec.calls != 0 {
			t.Errorf("expected no downstream calls, got %d", rec.calls)
		}
	})
}
