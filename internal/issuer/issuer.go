package issuer

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/khanghh/tokend/internal/tokens"
	"github.com/khanghh/tokend/internal/verifier"
)

const TokenTypeBearer = "bearer"

type Config struct {
	// ScopeAsGroup makes a requested scope double as a group name the
	// identity must be a member of.
	ScopeAsGroup bool
	// DefaultTTL applies when a request does not ask for a lifetime.
	DefaultTTL time.Duration
}

type IssueRequest struct {
	Username  string
	Password  string
	Scope     string
	ExpiresIn time.Duration
}

// Grant is the token descriptor returned to callers. ExpiresIn is the
// remaining lifetime in whole seconds, which for a reused token is shorter
// than the requested TTL.
type Grant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope,omitempty"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Service turns verified credentials into bearer tokens, reusing the live
// token for a (username, scope) pair when one exists.
type Service struct {
	config   Config
	verifier verifier.IdentityVerifier
	store    tokens.Store
	locker   Locker
}

func NewService(config Config, identityVerifier verifier.IdentityVerifier, store tokens.Store, locker Locker) *Service {
	return &Service{
		config:   config,
		verifier: identityVerifier,
		store:    store,
		locker:   locker,
	}
}

// Issue authenticates the request and returns a reused or freshly minted
// token. Failures are always one of ErrInvalidGrant, ErrInvalidScope or
// ErrServerError.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*Grant, error) {
	identity, err := s.verifier.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, verifier.ErrInvalidCredentials) {
		return nil, ErrInvalidGrant
	}
	if err != nil {
		slog.Error("identity backend failure", "username", req.Username, "error", err)
		return nil, ErrServerError
	}

	if s.config.ScopeAsGroup && req.Scope != "" {
		if err := s.checkScopeMembership(ctx, identity, req.Scope); err != nil {
			return nil, err
		}
	}

	ttl := req.ExpiresIn
	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	unlock, err := s.locker.Lock(ctx, req.Username+"\x00"+req.Scope)
	if err != nil {
		slog.Error("failed to acquire issuance lock", "username", req.Username, "error", err)
		return nil, ErrServerError
	}
	defer unlock()

	issued, err := s.store.Retrieve(ctx, tokens.Filter{Username: req.Username, Scope: req.Scope})
	if err == nil {
		return &Grant{
			AccessToken: issued.Token,
			TokenType:   TokenTypeBearer,
			Scope:       issued.Scope,
			ExpiresIn:   int64(issued.RemainingTTL(time.Now()) / time.Second),
		}, nil
	}
	if !errors.Is(err, tokens.ErrNotFound) {
		slog.Error("token lookup failure", "username", req.Username, "error", err)
		return nil, ErrServerError
	}

	token := tokens.GenerateToken()
	if err := s.store.Store(ctx, token, req.Username, req.Scope, ttl); err != nil {
		slog.Error("token store failure", "username", req.Username, "error", err)
		return nil, ErrServerError
	}
	return &Grant{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		Scope:       req.Scope,
		ExpiresIn:   int64(ttl / time.Second),
	}, nil
}

func (s *Service) checkScopeMembership(ctx context.Context, identity *verifier.Identity, scope string) error {
	groups := identity.Groups
	if groups == nil {
		var err error
		groups, err = s.verifier.GroupsOf(ctx, identity.Username)
		if errors.Is(err, verifier.ErrGroupsUnsupported) {
			return nil
		}
		if err != nil {
			slog.Error("group lookup failure", "username", identity.Username, "error", err)
			return ErrServerError
		}
	}
	if !slices.Contains(groups, scope) {
		return ErrInvalidScope
	}
	return nil
}

// Check resolves a presented token to its record, for introspection.
// Unknown and expired tokens are indistinguishable.
func (s *Service) Check(ctx context.Context, token string) (*tokens.TokenRecord, error) {
	record, err := s.store.Retrieve(ctx, tokens.Filter{Token: token})
	if errors.Is(err, tokens.ErrNotFound) {
		return nil, ErrInvalidGrant
	}
	if err != nil {
		slog.Error("token lookup failure", "error", err)
		return nil, ErrServerError
	}
	return record, nil
}

// Revoke deletes a token. Revoking an unknown token succeeds.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		slog.Error("token delete failure", "error", err)
		return ErrServerError
	}
	return nil
}
