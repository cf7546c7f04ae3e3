package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/deppfellow/shortlink-edge/internal/errs"
	"github.com/deppfellow/shortlink-edge/internal/kv"
	"github.com/deppfellow/shortlink-edge/internal/model"
	"github.com/deppfellow/shortlink-edge/internal/repository"
)

// AuthService resolves API keys sent in the X-AUTH-KEY header to users.
type AuthService struct {
	users    *repository.UserRepository
	validate *validator.Validate
}

func NewAuthService(users *repository.UserRepository) *AuthService {
	return &AuthService{
		users:    users,
		validate: validator.New(),
	}
}

// Authenticate returns the user owning apiKey.
//
// An empty, unknown or malformed key is not an error: the caller is
// anonymous and (nil, nil) is returned. A stored user that cannot be decoded is reported
// as a bad request.
func (s *AuthService) Authenticate(ctx context.Context, apiKey string) (*model.User, error) {
	if apiKey == "" {
		return nil, nil
	}

	user, err := s.users.GetByAPIKey(ctx, apiKey)
	switch {
	case errors.Is(err, kv.ErrNotFound), errors.Is(err, kv.ErrInvalidKey):
		return nil, nil
	case errors.Is(err, repository.ErrCorruptRecord):
		return nil, errs.NewBadRequestError(err.Error(), errs.CodeInvalidBody, nil, nil)
	case err != nil:
		return nil, fmt.Errorf("looking up api key: %w", err)
	}

	return user, nil
}

// CreateUser registers username with a freshly generated API key.
func (s *AuthService) CreateUser(ctx context.Context, username string) (*model.User, error) {
	if err := s.validate.Var(username, "required,max=64,printascii"); err != nil {
		return nil, fmt.Errorf("invalid username %q: %w", username, err)
	}

	user := &model.User{
		Username: username,
		APIKey:   strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
