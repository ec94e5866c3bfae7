package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/inspeksi/audit-dashboard/internal/credential"
	"github.com/inspeksi/audit-dashboard/internal/remote"
)

// RemoteClient is the subset of the API client used for authentication.
type RemoteClient interface {
	Login(ctx context.Context, username, password string) (remote.LoginResult, error)
	Session(store credential.Store) *remote.Session
}

// LoginObserver records login outcomes.
type LoginObserver interface {
	LoginAttempted(outcome string)
}

// Service wraps authentication business rules. Credentials are checked by
// the remote API; the service only keeps the issued token.
type Service struct {
	client   RemoteClient
	observer LoginObserver
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(client RemoteClient, observer LoginObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, observer: observer, logger: logger}
}

// Authenticate exchanges username/password for a token and stores it.
func (s *Service) Authenticate(ctx context.Context, username, password string, creds credential.Store) (credential.Claims, error) {
	result, err := s.client.Login(ctx, username, password)
	if err != nil {
		s.observe(loginOutcome(err))
		return credential.Claims{}, err
	}
	if err := creds.Save(result.Token); err != nil {
		s.observe("error")
		return credential.Claims{}, err
	}
	s.observe("success")
	claims, _ := credential.Inspect(result.Token)
	if claims.Username == "" {
		claims.Username = username
	}
	return claims, nil
}

// Logout ends the remote session best-effort and always clears the token.
func (s *Service) Logout(ctx context.Context, creds credential.Store) error {
	if _, ok := creds.Get(); ok {
		if err := s.client.Session(creds).Logout(ctx); err != nil && !errors.Is(err, remote.ErrSessionExpired) {
			s.logger.Warn("remote logout", slog.Any("error", err))
		}
	}
	return creds.Remove()
}

func (s *Service) observe(outcome string) {
	if s.observer != nil {
		s.observer.LoginAttempted(outcome)
	}
}

func loginOutcome(err error) string {
	var authErr *remote.AuthError
	switch {
	case errors.As(err, &authErr):
		return "rejected"
	case errors.Is(err, remote.ErrConfig):
		return "config"
	default:
		return "error"
	}
}
