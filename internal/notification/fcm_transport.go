package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMTransport sends payloads through Firebase Cloud Messaging.
type FCMTransport struct {
	client messageSender
}

// NewFCMTransport wraps a messaging client.
func NewFCMTransport(client *messaging.Client) *FCMTransport {
	return &FCMTransport{client: client}
}

// Send delivers p to token and returns the FCM message id.
func (t *FCMTransport) Send(ctx context.Context, token string, p Payload) (string, error) {
	id, err := t.client.Send(ctx, buildMessage(token, p))
	if err != nil {
		if messaging.IsUnregistered(err) {
			return "", fmt.Errorf("%w: %v", ErrTokenUnregistered, err)
		}
		return "", fmt.Errorf("fcm send: %w", err)
	}
	return id, nil
}

func buildMessage(token string, p Payload) *messaging.Message {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Data: p.Data,
		Android: &messaging.AndroidConfig{
			Priority: string(p.Channel.Priority),
			Notification: &messaging.AndroidNotification{
				ChannelID:   p.Channel.AndroidChannelID,
				Sound:       p.Channel.Sound,
				ClickAction: clickAction,
			},
		},
	}

	aps := &messaging.Aps{
		Category: p.Channel.Category,
		Sound:    p.Channel.Sound,
		Badge:    p.Channel.Badge,
	}
	msg.APNS = &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{Aps: aps},
	}
	if p.Channel.Priority == PriorityHigh {
		msg.APNS.Headers = map[string]string{"apns-priority": "10"}
	}
	return msg
}
