package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/kakehashi/pkg/domain/model"
)

func TestParseEvent(t *testing.T) {
	t.Run("text message event", func(t *testing.T) {
		body := []byte(`{"type":"message","source":{"userId":"u1"},"content":{"type":"text","text":"hello"}}`)

		ev, err := model.ParseEvent(body)
		gt.NoError(t, err).Required()

		gt.Value(t, ev.Type).Equal(model.EventTypeMessage)
		gt.Value(t, ev.Source.UserID).Equal("u1")
		gt.Value(t, ev.Content.Type).Equal(model.ContentTypeText)
		gt.Value(t, ev.Content.Text).Equal("hello")
		gt.Bool(t, ev.IsTextMessage()).True()
	})

	t.Run("url_verification event", func(t *testing.T) {
		body := []byte(`{"type":"url_verification","challenge":"abc123"}`)

		ev, err := model.ParseEvent(body)
		gt.NoError(t, err).Required()

		gt.Value(t, ev.Type).Equal(model.EventTypeURLVerification)
		gt.Value(t, ev.Challenge).Equal("abc123")
		gt.Bool(t, ev.IsTextMessage()).False()
	})

	t.Run("message with non-text content is not a text message", func(t *testing.T) {
		body := []byte(`{"type":"message","source":{"userId":"u1"},"content":{"type":"image"}}`)

		ev, err := model.ParseEvent(body)
		gt.NoError(t, err).Required()
		gt.Bool(t, ev.IsTextMessage()).False()
	})

	t.Run("malformed JSON is an error", func(t *testing.T) {
		_, err := model.ParseEvent([]byte(`{broken`))
		gt.Error(t, err)
	})
}
