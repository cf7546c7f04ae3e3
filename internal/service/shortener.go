package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/deppfellow/shortlink-edge/internal/config"
	"github.com/deppfellow/shortlink-edge/internal/errs"
	"github.com/deppfellow/shortlink-edge/internal/kv"
	"github.com/deppfellow/shortlink-edge/internal/model"
	"github.com/deppfellow/shortlink-edge/internal/repository"
)

// ShortenerService creates and resolves short links.
type ShortenerService struct {
	cfg   config.ShortenerConfig
	links *repository.LinkRepository

	now   func() time.Time
	newID func() string
}

func NewShortenerService(cfg config.ShortenerConfig, links *repository.LinkRepository) *ShortenerService {
	return &ShortenerService{
		cfg:   cfg,
		links: links,
		now:   time.Now,
		newID: randomShortID,
	}
}

// Create validates req and stores a new link for it.
//
// user is nil for anonymous callers. host is the host the service was
// reached on and prefixes the returned short URL.
func (s *ShortenerService) Create(ctx context.Context, req *model.NewShortURLRequest, user *model.User, host string) (*model.NewShortURLResponse, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, errs.NewBadRequestError(err.Error(), errs.CodeInvalidTargetURL, nil, nil)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errs.NewBadRequestError("target url syntax error", errs.CodeInvalidTargetURL, nil, nil)
	}

	ttl := req.TTLSeconds()
	if ttl == 0 || ttl > seconds(s.cfg.GuestMaxTTL) {
		if user == nil {
			return nil, errs.NewUnauthorizedError("Need Auth")
		}
	}
	if ttl != 0 && ttl < seconds(s.cfg.MinTTL) {
		return nil, errs.NewBadRequestError(
			fmt.Sprintf("The TTL must be greater than %d seconds.", seconds(s.cfg.MinTTL)),
			errs.CodeTTLTooShort, nil, nil)
	}
	if ttl > seconds(s.cfg.MaxTTL) {
		return nil, errs.NewBadRequestError(
			fmt.Sprintf("The TTL must not exceed %d seconds.", seconds(s.cfg.MaxTTL)),
			errs.CodeTTLTooLong, nil, nil)
	}

	id, err := s.allocateID(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	link := &model.ShortURL{
		RawURL:     req.URL,
		InsertTime: now.UnixMilli(),
	}
	if user != nil {
		link.Username = user.Username
	}
	if ttl != 0 {
		link.ExpireTime = now.Add(time.Duration(ttl) * time.Second).UnixMilli()
	}

	if err := s.links.Create(ctx, id, link); err != nil {
		return nil, fmt.Errorf("storing link: %w", err)
	}

	return &model.NewShortURLResponse{
		ShortURL: host + "/" + id,
		RawURL:   req.URL,
	}, nil
}

// allocateID draws random ids until one is free.
func (s *ShortenerService) allocateID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.cfg.MaxIDAttempts; attempt++ {
		id := s.newID()

		taken, err := s.links.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("checking short id: %w", err)
		}
		if !taken {
			return id, nil
		}
	}

	return "", errs.NewInternalServerErrorWithCode("could not allocate a short url id", errs.CodeInternal)
}

// Resolve returns the target URL of a live link.
func (s *ShortenerService) Resolve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", errs.NewNotFoundError("Not Found", nil)
	}

	link, err := s.links.Get(ctx, id)
	if errors.Is(err, kv.ErrNotFound) || errors.Is(err, kv.ErrInvalidKey) || errors.Is(err, repository.ErrCorruptRecord) {
		return "", errs.NewNotFoundError("Not Found", nil)
	}
	if err != nil {
		return "", fmt.Errorf("reading link: %w", err)
	}

	if !link.Permanent() && !s.now().Before(link.ExpiresAt()) {
		return "", errs.NewNotFoundError("Not Found", nil)
	}

	return link.RawURL, nil
}

func seconds(d time.Duration) uint64 {
	return uint64(d / time.Second)
}
