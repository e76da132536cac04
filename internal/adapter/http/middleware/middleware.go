package middleware

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

type (
	// TokenVerifier turns a bearer token into a caller identity.
	TokenVerifier interface {
		Verify(ctx context.Context, token string) (*models.User, error)
	}

	Middleware struct {
		auth    TokenVerifier
		service string
		log     logger.Logger
	}
)

func NewMiddleware(auth TokenVerifier, service string, log logger.Logger) *Middleware {
	return &Middleware{
		auth:    auth,
		service: service,
		log:     log,
	}
}
