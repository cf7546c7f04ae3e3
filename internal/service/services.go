// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, applies the
// short URL rules and calls repository methods to read and
// write the key/value store.
package service

import (
	"github.com/deppfellow/shortlink-edge/internal/lib/job"
	"github.com/deppfellow/shortlink-edge/internal/repository"
	"github.com/deppfellow/shortlink-edge/internal/server"
)

type Services struct {
	Auth      *AuthService
	Shortener *ShortenerService
	Assets    *AssetService
	Job       *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	return &Services{
		Auth:      NewAuthService(repos.Users),
		Shortener: NewShortenerService(s.Config.Shortener, repos.Links),
		Assets:    NewAssetService(s.Logger, repos.Assets),
		Job:       s.Job,
	}, nil
}
