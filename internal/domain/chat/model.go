package chat

import (
	"context"
	"io"

	"friendlychat/backend/internal/domain/identity"
	"friendlychat/backend/internal/domain/messages"
	"friendlychat/backend/internal/live"
)

const (
	// MessagesCollection holds every chat message.
	MessagesCollection = "messages"
	// RecentLimit is the size of the live "recent messages" window.
	RecentLimit = 12
)

// Route names a UI view.
type Route string

const (
	RouteLogin Route = "/login"
	RouteChat  Route = "/chat"
)

// Navigator moves the UI between views.
type Navigator interface {
	Navigate(route Route)
}

// IdentityProvider manages sign-in state and exposes it as a live signal.
type IdentityProvider interface {
	SignIn(ctx context.Context, cred identity.Credential) (*identity.Session, error)
	SignOut(ctx context.Context) error
	Sessions() *live.Feed[*identity.Session]
}

// MessageStore persists chat messages and serves live ordered-limit queries.
type MessageStore interface {
	Append(ctx context.Context, collection string, m messages.ChatMessage) (*messages.RecordRef, error)
	Watch(ctx context.Context, q messages.Query, fn func([]messages.Message)) (*live.Subscription, error)
}

// BlobStore stores uploaded binaries and returns a retrievable URL.
type BlobStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// Notifier is told about every message that was written.
type Notifier interface {
	NotifyMessage(ctx context.Context, m messages.ChatMessage, ref *messages.RecordRef) error
}

// ImageUpload is a file picked in the UI.
type ImageUpload struct {
	FileName string
	Body     io.Reader
}

// ImageOptions bound what SaveImageMessage accepts.
type ImageOptions struct {
	MaxBytes     int64
	MaxDimension uint
}

// DefaultImageOptions allows 10 MiB uploads, downscaled to 1600px.
var DefaultImageOptions = ImageOptions{MaxBytes: 10 << 20, MaxDimension: 1600}

// RecentMessagesQuery is the live query behind LoadMessages.
func RecentMessagesQuery() messages.Query {
	return messages.Query{
		Collection: MessagesCollection,
		OrderBy:    messages.FieldTimestamp,
		Direction:  messages.Desc,
		Limit:      RecentLimit,
	}
}

type nopNavigator struct{}

func (nopNavigator) Navigate(Route) {}
