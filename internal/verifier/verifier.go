package verifier

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrGroupsUnsupported  = errors.New("identity backend does not resolve groups")
)

// Identity is a successfully authenticated principal. Groups is nil when
// the backend did not resolve membership during authentication.
type Identity struct {
	Username string
	Groups   []string
}

// IdentityVerifier authenticates credentials against an identity backend.
// Backends without group support return ErrGroupsUnsupported from GroupsOf
// and callers skip scope membership checks.
type IdentityVerifier interface {
	Authenticate(ctx context.Context, username string, password string) (*Identity, error)
	GroupsOf(ctx context.Context, username string) ([]string, error)
}
