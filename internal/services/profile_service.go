package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoobuddy/internal/cache"
	"github.com/yoockh/yoobuddy/internal/models"
	pgrepo "github.com/yoockh/yoobuddy/internal/repositories/postgres"
	"github.com/yoockh/yoobuddy/internal/utils"
)

const profileCacheTTL = 10 * time.Minute

type ProfileService interface {
	// Snapshot returns the profile a socket session caches at connect
	// time. An unknown username degrades to {Name: username} so the
	// handshake never fails on a missing row.
	Snapshot(ctx context.Context, username string) models.Profile
}

type profileService struct {
	users pgrepo.UserRepository
	cache cache.Cache
}

func NewProfileService(users pgrepo.UserRepository, c cache.Cache) ProfileService {
	return &profileService{users: users, cache: c}
}

func (s *profileService) Snapshot(ctx context.Context, username string) models.Profile {
	fallback := models.Profile{Username: username, Name: username}
	if username == "" {
		return fallback
	}

	key := "profile:" + username
	if s.cache != nil {
		var cached models.Profile
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached
		}
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			// degrade, never fail the handshake on a lookup error
			return fallback
		}
		return fallback
	}

	p := models.Profile{Username: u.Username, Name: u.Name}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, p, profileCacheTTL)
	}
	return p
}
