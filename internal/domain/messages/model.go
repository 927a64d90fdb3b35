package messages

import (
	"fmt"
	"time"
)

const FieldTimestamp = "timestamp"

// ChatMessage is the record written for every chat post.
//
// A zero Timestamp is the server-timestamp sentinel: every store replaces it
// with its own clock at commit time.
type ChatMessage struct {
	Name          *string   `firestore:"name" json:"name"`
	ProfilePicURL *string   `firestore:"profilePicUrl" json:"profilePicUrl"`
	Timestamp     time.Time `firestore:"timestamp,serverTimestamp" json:"timestamp"`
	UID           *string   `firestore:"uid" json:"uid"`
	Text          string    `firestore:"text,omitempty" json:"text,omitempty"`
	ImageURL      string    `firestore:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}

// HasContent reports whether the message carries text or an image.
func (m ChatMessage) HasContent() bool {
	return m.Text != "" || m.ImageURL != ""
}

// Message is a committed ChatMessage as returned by live queries.
type Message struct {
	ID string `firestore:"-" json:"id"`
	ChatMessage
}

// RecordRef points at a created record.
type RecordRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type Direction int

const (
	Desc Direction = iota
	Asc
)

func (d Direction) String() string {
	if d == Asc {
		return "asc"
	}
	return "desc"
}

// Query describes a standing ordered-limit read over one collection.
type Query struct {
	Collection string
	OrderBy    string
	Direction  Direction
	Limit      int
}

func (q Query) validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrBadRequest)
	}
	if q.OrderBy == "" {
		return fmt.Errorf("%w: order field is required", ErrBadRequest)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrBadRequest)
	}
	return nil
}

func sameIDs(batch []Message, ids []string) bool {
	if len(batch) != len(ids) {
		return false
	}
	for i := range batch {
		if batch[i].ID != ids[i] {
			return false
		}
	}
	return true
}

func idsOf(batch []Message) []string {
	ids := make([]string, len(batch))
	for i := range batch {
		ids[i] = batch[i].ID
	}
	return ids
}
