package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/usecase/identity"
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

// Credentials are the sign-up and sign-in form fields. Confirm is checked
// only when set.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm,omitempty"`
}

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	clock    domain.Clock
	logger   *zap.Logger
	hashCost int
}

func New(users repository.UserRepository, sessions repository.SessionRepository, clock domain.Clock, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		clock:    clock,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
}

// SignUp registers a user. Validation runs before any store access.
func (uc *UseCase) SignUp(ctx context.Context, creds Credentials) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		return nil, domain.ErrFieldsRequired
	}
	if len(creds.Password) < MinPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}
	if creds.Confirm != "" && creds.Confirm != creds.Password {
		return nil, domain.ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), uc.hashCost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "hash password", err)
	}

	user := &domain.User{Email: email, PasswordHash: string(hash)}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, domain.Persistence("create user", err)
	}
	uc.logger.Info("user signed up", zap.String("user_id", user.ID))
	return user, nil
}

// SignIn verifies the password and opens a session of the given ttl.
func (uc *UseCase) SignIn(ctx context.Context, creds Credentials, ttl time.Duration) (*domain.Session, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, domain.ErrFieldsRequired
	}

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrBadCredentials
		}
		return nil, domain.Persistence("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, domain.ErrBadCredentials
	}

	return uc.openSession(ctx, user, ttl)
}

func (uc *UseCase) openSession(ctx context.Context, user *domain.User, ttl time.Duration) (*domain.Session, error) {
	now := uc.clock.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, domain.Persistence("save session", err)
	}
	uc.logger.Info("session opened", zap.String("user_id", user.ID), zap.String("session_id", session.ID))
	return session, nil
}

func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(uc.clock.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (uc *UseCase) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) (*domain.Session, error) {
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(ttl.Seconds())); err != nil {
		return nil, err
	}
	session.ExpiresAt = uc.clock.Now().Add(ttl)
	return session, nil
}

// SignOut revokes the session.
func (uc *UseCase) SignOut(ctx context.Context, sessionID string) error {
	return uc.sessions.Delete(ctx, sessionID)
}

// CurrentUser returns the user behind a live session.
func (uc *UseCase) CurrentUser(ctx context.Context, sessionID string) (*domain.User, error) {
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return uc.users.GetByID(ctx, session.UserID)
}

// Resolver is the identity source of one session's workspace. Every call
// re-reads the session and its user.
func (uc *UseCase) Resolver(sessionID string) identity.Resolver {
	return identity.ResolverFunc(func(ctx context.Context) (domain.Identity, error) {
		user, err := uc.CurrentUser(ctx, sessionID)
		if err != nil {
			return domain.Identity{}, err
		}
		return user.Identity(), nil
	})
}
