package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/store"
)

type SessionRepository interface {
	// Get returns nil, nil when the shopper is signed out.
	Get(ctx context.Context, userID uuid.UUID) (*model.Session, error)
	Save(ctx context.Context, session *model.Session, ttl time.Duration) error
	Delete(ctx context.Context, userID uuid.UUID) error
	// Watch sends nil when the session is removed.
	Watch(ctx context.Context, userID uuid.UUID) (<-chan *model.Session, error)
}

type kvSessionRepo struct{ kv store.Store }

func NewSessionRepository(kv store.Store) SessionRepository {
	return &kvSessionRepo{kv: kv}
}

func (r *kvSessionRepo) Get(ctx context.Context, userID uuid.UUID) (*model.Session, error) {
	raw, err := r.kv.Get(ctx, store.SessionKey(userID.String()))
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decodeSession(raw)
}

func (r *kvSessionRepo) Save(ctx context.Context, session *model.Session, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.kv.Set(ctx, store.SessionKey(session.UserID.String()), raw, ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *kvSessionRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := r.kv.Delete(ctx, store.SessionKey(userID.String())); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *kvSessionRepo) Watch(ctx context.Context, userID uuid.UUID) (<-chan *model.Session, error) {
	changes, err := r.kv.Watch(ctx, store.SessionKey(userID.String()))
	if err != nil {
		return nil, fmt.Errorf("watch session: %w", err)
	}
	out := make(chan *model.Session)
	go func() {
		defer close(out)
		for ch := range changes {
			sess, err := decodeSession(ch.Value)
			if err != nil {
				continue
			}
			select {
			case out <- sess:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// decodeSession rejects stored sessions carrying an unknown role.
func decodeSession(raw []byte) (*model.Session, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	role, err := model.ParseRole(string(sess.Role))
	if err != nil {
		return nil, err
	}
	sess.Role = role
	return &sess, nil
}
