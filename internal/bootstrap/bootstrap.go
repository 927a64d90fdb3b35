// Package bootstrap assembles the chat backends selected by the config.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"friendlychat/backend/internal/config"
	"friendlychat/backend/internal/domain/blobs"
	"friendlychat/backend/internal/domain/chat"
	"friendlychat/backend/internal/domain/identity"
	"friendlychat/backend/internal/domain/messages"
	"friendlychat/backend/internal/domain/notify"
	"friendlychat/backend/internal/firebase"
	platformredis "friendlychat/backend/internal/platform/redis"
)

const signedURLTTL = 7 * 24 * time.Hour

// Backends holds the collaborators of chat.Service.
type Backends struct {
	Identity chat.IdentityProvider
	Store    chat.MessageStore
	Blobs    chat.BlobStore
	Notifier chat.Notifier

	closers []func()
}

func New(ctx context.Context, cfg config.Config) (*Backends, error) {
	b := &Backends{}

	var clients *firebase.Clients
	if cfg.UsesFirebase() {
		c, err := firebase.NewClients(ctx, cfg)
		if err != nil {
			return nil, err
		}
		clients = c
		b.closers = append(b.closers, c.Close)
	}

	if clients != nil {
		b.Identity = identity.NewFirebase(clients.Auth)

		st := blobs.NewCloudStorage(clients.Storage, clients.Bucket)
		if clients.IAM != nil {
			st.EnableSignedURLs(clients.IAM, cfg.SignedURLServiceAccountEmail, signedURLTTL)
		}
		b.Blobs = st

		if cfg.NotifyTopic != "" && clients.Messaging != nil {
			b.Notifier = notify.NewFCM(clients.Messaging, cfg.NotifyTopic)
		}
	} else {
		b.Identity = DevIdentity(cfg.DevUsers)
		b.Blobs = blobs.NewMemory("local")
	}

	switch cfg.Backend {
	case config.BackendFirebase:
		if clients == nil {
			b.Close()
			return nil, fmt.Errorf("firebase backend requires a project id")
		}
		b.Store = messages.NewFirestore(clients.Firestore)
	case config.BackendRedis:
		rdb, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		b.Store = messages.NewRedis(rdb)
	case config.BackendMemory:
		b.Store = messages.NewMemory()
	default:
		b.Close()
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	log.Printf("bootstrap: backend=%s firebase=%t notify=%t", cfg.Backend, clients != nil, b.Notifier != nil)
	return b, nil
}

// NewService wires a chat.Service over b.
func (b *Backends) NewService(cfg config.Config, nav chat.Navigator) *chat.Service {
	svc := chat.NewService(b.Identity, b.Store, nav)
	if b.Blobs != nil {
		svc.SetBlobStore(b.Blobs)
	}
	if b.Notifier != nil {
		svc.SetNotifier(b.Notifier)
	}
	opts := chat.DefaultImageOptions
	if cfg.MaxImageBytes > 0 {
		opts.MaxBytes = cfg.MaxImageBytes
	}
	if cfg.MaxImageDimension > 0 {
		opts.MaxDimension = uint(cfg.MaxImageDimension)
	}
	svc.SetImageOptions(opts)
	return svc
}

func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// DevIdentity is the offline provider: each configured dev user signs in
// with its token.
func DevIdentity(users []config.DevUser) *identity.Memory {
	idp := identity.NewMemory()
	for _, u := range users {
		idp.Register(u.Token, identity.Session{
			UID:         u.UID,
			DisplayName: identity.Optional(u.Name),
			PhotoURL:    identity.Optional(u.PhotoURL),
			Email:       u.Email,
		})
	}
	return idp
}
