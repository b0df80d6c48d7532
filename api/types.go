package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

var errEmptyPayload = errors.New("empty payload")

type urlVerification struct {
	Challenge string `json:"challenge"`
	Type      string `json:"type"`
}

// Payload is one inbound Slack delivery: URLVerification, InteractiveAction,
// MessagePosted, ReactionAdded or Unknown.
type Payload interface {
	payload()
}

type URLVerification struct {
	Challenge string
}

type InteractiveAction struct {
	Callback slack.InteractionCallback
}

type MessagePosted struct {
	EventID string
	Event   *slackevents.MessageEvent
}

type ReactionAdded struct {
	EventID string
	Event   *slackevents.ReactionAddedEvent
}

// Unknown is anything else Slack sends us; it is acknowledged and dropped.
type Unknown struct {
	Type    string
	EventID string
}

func (URLVerification) payload()   {}
func (InteractiveAction) payload() {}
func (MessagePosted) payload()     {}
func (ReactionAdded) payload()     {}
func (Unknown) payload()           {}

// ParsePayload decodes a request body. Interactive payloads arrive form
// encoded under "payload"; everything else is an Events API JSON envelope.
func ParsePayload(contentType string, body []byte) (Payload, error) {
	if len(body) == 0 {
		return nil, errEmptyPayload
	}

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("ParsePayload: bad form body: %w", err)
		}
		raw := form.Get("payload")
		if raw == "" {
			return Unknown{Type: "form"}, nil
		}
		var cb slack.InteractionCallback
		if err := json.Unmarshal([]byte(raw), &cb); err != nil {
			return nil, fmt.Errorf("ParsePayload: bad interaction payload: %w", err)
		}
		return InteractiveAction{Callback: cb}, nil
	}

	var verification urlVerification
	if err := json.Unmarshal(body, &verification); err != nil {
		return nil, fmt.Errorf("ParsePayload: bad event envelope: %w", err)
	}
	if verification.Type == slackevents.URLVerification {
		return URLVerification{Challenge: verification.Challenge}, nil
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return Unknown{Type: verification.Type}, nil
	}
	if event.Type != slackevents.CallbackEvent {
		return Unknown{Type: event.Type}, nil
	}

	var eventID string
	if cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent); ok {
		eventID = cb.EventID
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		return MessagePosted{EventID: eventID, Event: ev}, nil
	case *slackevents.ReactionAddedEvent:
		return ReactionAdded{EventID: eventID, Event: ev}, nil
	}
	return Unknown{Type: event.InnerEvent.Type, EventID: eventID}, nil
}
