package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/workpulse/workpulse/internal/auth"
	"github.com/workpulse/workpulse/internal/cache"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
	"github.com/workpulse/workpulse/internal/repository"
)

// AuthService handles login and logout. Bad login and bad password produce
// the same message so the response does not reveal which part was wrong.
type AuthService struct {
	users    repository.UserStore
	tokens   *auth.TokenManager
	denylist *cache.TokenDenylist
	log      *logrus.Logger
}

func NewAuthService(users repository.UserStore, tokens *auth.TokenManager, denylist *cache.TokenDenylist, log *logrus.Logger) *AuthService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthService{users: users, tokens: tokens, denylist: denylist, log: log}
}

// Login verifies credentials and issues a signed token.
func (s *AuthService) Login(login, password string) (string, *models.User, error) {
	user, err := s.users.GetByLogin(login)
	if err != nil {
		if faults.Is(err, faults.NotFound) {
			return "", nil, faults.New(faults.Unauthenticated, "invalid credentials")
		}
		return "", nil, err
	}
	if user.ValidID != 1 {
		return "", nil, faults.New(faults.Unauthenticated, "invalid credentials")
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, faults.New(faults.Unauthenticated, "invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return "", nil, faults.Wrap(faults.Internal, err, "token issue failed")
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"login":   user.Login,
	}).Info("login")
	return token, user, nil
}

// Logout revokes the presented token for its remaining lifetime. Without a
// denylist the token simply ages out.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		s.log.WithError(err).WithField("jti", claims.ID).Warn("token revoke failed")
	}
	return nil
}
