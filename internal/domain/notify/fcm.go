package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"friendlychat/backend/internal/domain/messages"
)

// Sender is the part of the FCM client the notifier uses.
// *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM pushes a notification to a topic for every new chat message.
type FCM struct {
	sender Sender
	topic  string
}

func NewFCM(sender Sender, topic string) *FCM {
	return &FCM{sender: sender, topic: topic}
}

func (n *FCM) NotifyMessage(ctx context.Context, m messages.ChatMessage, ref *messages.RecordRef) error {
	msg := Build(n.topic, m, ref)
	if _, err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Build assembles the topic notification for m.
func Build(topic string, m messages.ChatMessage, ref *messages.RecordRef) *messaging.Message {
	title := "New message"
	if m.Name != nil && *m.Name != "" {
		title = *m.Name
	}
	body := m.Text
	if body == "" {
		body = "Sent an image"
	}

	n := &messaging.Notification{Title: title, Body: body}
	if m.ProfilePicURL != nil {
		n.ImageURL = *m.ProfilePicURL
	}

	data := map[string]string{}
	if ref != nil {
		data["messageId"] = ref.ID
	}
	if m.UID != nil {
		data["uid"] = *m.UID
	}

	return &messaging.Message{
		Topic:        topic,
		Notification: n,
		Data:         data,
	}
}
