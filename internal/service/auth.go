package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

const minPasswordLen = 8

// AuthResult is what a successful sign-in hands back to the client.
type AuthResult struct {
	Token   string
	Session *model.Session
}

type AuthService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	sessions    *SessionService
	jwtSecret   []byte
	jwtExpiry   time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	sessions *SessionService,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		sessions:    sessions,
		jwtSecret:   []byte(jwtSecret),
		jwtExpiry:   jwtExpiry,
	}
}

func (s *AuthService) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, minPasswordLen)
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, model.StorageFailure("check user", err)
	}
	if existing != nil {
		return nil, model.ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Email: email, Password: string(hashed)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, model.StorageFailure("create user", err)
	}
	return s.open(ctx, user)
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, model.StorageFailure("get user", err)
	}
	if user == nil {
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return s.open(ctx, user)
}

// SignOut removes the cached session; watchers observe nil.
func (s *AuthService) SignOut(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.Clear(ctx, userID)
}

// Authenticate resolves a bearer token to the live session. A valid token
// whose session was cleared is rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	userID, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, model.ErrSessionExpired
	}
	return sess, nil
}

func (s *AuthService) open(ctx context.Context, user *model.User) (*AuthResult, error) {
	role, err := s.profileRepo.EnsureProfile(ctx, user.ID, user.Email)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			return nil, err
		}
		return nil, model.StorageFailure("get role", err)
	}

	sess := &model.Session{UserID: user.ID, Email: user.Email, Role: role}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{Token: token, Session: sess}, nil
}

func (s *AuthService) generateToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) parseToken(raw string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid token", model.ErrAuthenticationRequired)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid subject", model.ErrAuthenticationRequired)
	}
	return userID, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", model.ErrValidation)
	}
	return email, nil
}
