package verifier

import (
	"context"
	"errors"

	"github.com/khanghh/tokend/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LocalVerifier authenticates against the service's own user table. It has
// no notion of group membership.
type LocalVerifier struct {
	db *gorm.DB
}

func NewLocalVerifier(db *gorm.DB) *LocalVerifier {
	return &LocalVerifier{db: db}
}

func (v *LocalVerifier) Authenticate(ctx context.Context, username string, password string) (*Identity, error) {
	var user model.User
	err := v.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &Identity{Username: user.Username}, nil
}

func (v *LocalVerifier) GroupsOf(ctx context.Context, username string) ([]string, error) {
	return nil, ErrGroupsUnsupported
}
