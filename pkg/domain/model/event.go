package model

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// Event types delivered by the LINE WORKS bot callback
const (
	EventTypeURLVerification = "url_verification"
	EventTypeMessage         = "message"
)

// ContentTypeText marks a message carrying plain text
const ContentTypeText = "text"

// Event is the envelope of a LINE WORKS bot callback. Fields other than Type
// are populated depending on the event type.
type Event struct {
	Type      string  `json:"type"`
	Challenge string  `json:"challenge,omitempty"`
	Source    Source  `json:"source"`
	Content   Content `json:"content"`
}

// Source identifies where a message event originated
type Source struct {
	UserID    string `json:"userId"`
	ChannelID string `json:"channelId,omitempty"`
}

// Content is the payload of a message event, tagged by type
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ParseEvent decodes a callback request body into an Event
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, goerr.Wrap(err, "failed to parse callback event")
	}
	return &ev, nil
}

// IsTextMessage returns true for message events carrying text content
func (x *Event) IsTextMessage() bool {
	return x.Type == EventTypeMessage && x.Content.Type == ContentTypeText
}
