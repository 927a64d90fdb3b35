package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"friendlychat/backend/internal/domain/blobs"
	"friendlychat/backend/internal/domain/identity"
	"friendlychat/backend/internal/domain/messages"
	"friendlychat/backend/internal/live"
	"friendlychat/backend/internal/utils"
)

// Service mediates between the UI and the identity, message and blob
// backends.
//
// The signed-in user is mirrored from the provider's live session signal.
// The subscription callback is the only writer of that mirror; every other
// method only reads it.
type Service struct {
	identity IdentityProvider
	store    MessageStore
	nav      Navigator
	blobs    BlobStore
	notifier Notifier
	images   ImageOptions
	logger   *log.Logger

	mu          sync.RWMutex
	currentUser *identity.Session
	sessionSub  *live.Subscription
}

func NewService(idp IdentityProvider, store MessageStore, nav Navigator) *Service {
	if nav == nil {
		nav = nopNavigator{}
	}
	s := &Service{
		identity: idp,
		store:    store,
		nav:      nav,
		images:   DefaultImageOptions,
		logger:   log.Default(),
	}
	s.sessionSub = idp.Sessions().Subscribe(s.setCurrentUser)
	return s
}

// SetLogger replaces the default logger.
func (s *Service) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetBlobStore enables image messages.
func (s *Service) SetBlobStore(b BlobStore) {
	s.blobs = b
}

// SetNotifier sets the notifier told about every written message.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetImageOptions overrides DefaultImageOptions.
func (s *Service) SetImageOptions(o ImageOptions) {
	s.images = o
}

// Close stops mirroring the provider's session signal.
func (s *Service) Close() {
	s.sessionSub.UnsubscribeWait()
}

func (s *Service) setCurrentUser(u *identity.Session) {
	s.mu.Lock()
	s.currentUser = u.Clone()
	s.mu.Unlock()
}

// CurrentUser returns a snapshot of the signed-in user, nil when signed out.
func (s *Service) CurrentUser() *identity.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUser.Clone()
}

// Sessions subscribes fn to the provider's live session signal. fn receives
// the current session right away.
func (s *Service) Sessions(fn func(*identity.Session)) *live.Subscription {
	return s.identity.Sessions().Subscribe(fn)
}

// Login completes the interactive sign-in and shows the chat view. The
// mirrored user is updated by the session signal, not by the return value.
func (s *Service) Login(ctx context.Context, cred identity.Credential) (*identity.Session, error) {
	session, err := s.identity.SignIn(ctx, cred)
	if err != nil {
		s.logger.Printf("chat: sign in error: %v", err)
		return nil, err
	}
	s.nav.Navigate(RouteChat)
	return session, nil
}

// Logout ends the session and shows the login view. On failure the view is
// left alone.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.identity.SignOut(ctx); err != nil {
		s.logger.Printf("chat: sign out error: %v", err)
		return err
	}
	s.nav.Navigate(RouteLogin)
	s.logger.Printf("chat: signed out")
	return nil
}

// AddMessage writes a text or image message as the signed-in user.
func (s *Service) AddMessage(ctx context.Context, text, imageURL string) (*messages.RecordRef, error) {
	if text == "" && imageURL == "" {
		s.logger.Printf("chat: addMessage was called without a message")
		return nil, ErrEmptyMessage
	}

	user := s.CurrentUser()
	if user == nil {
		s.logger.Printf("chat: addMessage requires a signed-in user")
		return nil, ErrNotSignedIn
	}

	uid := user.UID
	msg := messages.ChatMessage{
		Name:          user.DisplayName,
		ProfilePicURL: user.PhotoURL,
		UID:           &uid,
		Text:          text,
		ImageURL:      imageURL,
	}

	ref, err := s.store.Append(ctx, MessagesCollection, msg)
	if err != nil {
		s.logger.Printf("chat: error writing new message to the message store: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyMessage(ctx, msg, ref); err != nil {
			s.logger.Printf("chat: notify message %s: %v", ref.ID, err)
		}
	}

	return ref, nil
}

// SaveTextMessage writes a text message.
func (s *Service) SaveTextMessage(ctx context.Context, text string) (*messages.RecordRef, error) {
	return s.AddMessage(ctx, text, "")
}

// SaveImageMessage stores the picked image in the blob store and writes a
// message pointing at it.
func (s *Service) SaveImageMessage(ctx context.Context, img ImageUpload) (*messages.RecordRef, error) {
	user := s.CurrentUser()
	if user == nil {
		s.logger.Printf("chat: saveImageMessage requires a signed-in user")
		return nil, ErrNotSignedIn
	}
	if s.blobs == nil {
		return nil, ErrUploadUnavailable
	}
	if img.Body == nil {
		return nil, fmt.Errorf("%w: image file is required", ErrBadRequest)
	}

	data, err := s.readImage(img.Body)
	if err != nil {
		return nil, err
	}
	data, contentType, err := blobs.Downscale(data, s.images.MaxDimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	objectPath := fmt.Sprintf("%s/%s/%s", user.UID, uuid.NewString(), utils.ObjectName(img.FileName))
	url, err := s.blobs.Upload(ctx, objectPath, contentType, bytes.NewReader(data))
	if err != nil {
		s.logger.Printf("chat: error uploading %s: %v", objectPath, err)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return s.AddMessage(ctx, "", url)
}

func (s *Service) readImage(r io.Reader) ([]byte, error) {
	limit := s.images.MaxBytes
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", ErrBadRequest, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image file is empty", ErrBadRequest)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrBadRequest, limit)
	}
	return data, nil
}

// LoadMessages starts the live "recent messages" query. fn receives the 12
// most recent messages, newest first, every time that window changes.
// Unsubscribe, or cancelling ctx, stops delivery.
func (s *Service) LoadMessages(ctx context.Context, fn func([]messages.Message)) (*live.Subscription, error) {
	sub, err := s.store.Watch(ctx, RecentMessagesQuery(), fn)
	if err != nil {
		s.logger.Printf("chat: load messages: %v", err)
		return nil, err
	}
	return sub, nil
}
