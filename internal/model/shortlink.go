// Package model holds the entities persisted in the key/value store and
// the request and response payloads of the public API.
package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ShortURL is the stored record behind a short id.
//
// Times are unix milliseconds. ExpireTime is 0 for links that never expire.
type ShortURL struct {
	RawURL     string `json:"raw_url"`
	Username   string `json:"username"`
	InsertTime int64  `json:"insert_time"`
	ExpireTime int64  `json:"expire_time"`
}

// Permanent reports whether the link never expires.
func (s *ShortURL) Permanent() bool {
	return s.ExpireTime == 0
}

// ExpiresAt returns the expiry instant, or the zero time for permanent links.
func (s *ShortURL) ExpiresAt() time.Time {
	if s.Permanent() {
		return time.Time{}
	}
	return time.UnixMilli(s.ExpireTime)
}

// User is an API key holder. Users are stored under their API key.
type User struct {
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
}

// NewShortURLRequest is the body of POST /new.
//
// TTL is in seconds. A missing or zero TTL asks for a permanent link.
type NewShortURLRequest struct {
	URL string  `json:"url" validate:"required"`
	TTL *uint64 `json:"ttl"`
}

func (r *NewShortURLRequest) Validate() error {
	return validate.Struct(r)
}

// TTLSeconds returns the requested TTL with a missing value read as 0.
func (r *NewShortURLRequest) TTLSeconds() uint64 {
	if r.TTL == nil {
		return 0
	}
	return *r.TTL
}

// NewShortURLResponse is returned by POST /new.
type NewShortURLResponse struct {
	ShortURL string `json:"short_url"`
	RawURL   string `json:"raw_url"`
}
