package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

// SessionService is the single owner of the cached shopper identity.
type SessionService struct {
	sessions repository.SessionRepository
	ttl      time.Duration
}

func NewSessionService(sessions repository.SessionRepository, ttl time.Duration) *SessionService {
	return &SessionService{sessions: sessions, ttl: ttl}
}

// Current returns nil, nil when the shopper is not signed in.
func (s *SessionService) Current(ctx context.Context, userID uuid.UUID) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, model.StorageFailure("read session", err)
	}
	return sess, nil
}

func (s *SessionService) Save(ctx context.Context, sess *model.Session) error {
	if _, err := model.ParseRole(string(sess.Role)); err != nil {
		return err
	}
	if err := s.sessions.Save(ctx, sess, s.ttl); err != nil {
		return model.StorageFailure("save session", err)
	}
	return nil
}

func (s *SessionService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return model.StorageFailure("clear session", err)
	}
	return nil
}

// Watch delivers the new session after every change and nil on sign-out.
func (s *SessionService) Watch(ctx context.Context, userID uuid.UUID) (<-chan *model.Session, error) {
	ch, err := s.sessions.Watch(ctx, userID)
	if err != nil {
		return nil, model.StorageFailure("watch session", err)
	}
	return ch, nil
}
