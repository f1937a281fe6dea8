package auth

import (
	"context"

	"github.com/quillhub/backend/internal/models"
)

// Authenticator is what the HTTP layer needs from the auth service
type Authenticator interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	CurrentUser(ctx context.Context, userID uint) (*models.User, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Ensure Service implements Authenticator
var _ Authenticator = (*Service)(nil)
