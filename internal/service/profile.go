package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tasteapp/taste-index/internal/contentref"
	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/normalize"
	"github.com/tasteapp/taste-index/internal/store"
)

// ProfileService edits the user-owned parts of an account.
type ProfileService struct {
	index         store.Index
	contentScheme string
	retry         WriterConfig
	now           func() time.Time
	logger        *slog.Logger
}

// NewProfileService creates a new profile service. Edits that lose a write
// race are retried under retry, the same bounds the index writer uses.
func NewProfileService(index store.Index, contentScheme string, retry WriterConfig, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		index:         index,
		contentScheme: contentScheme,
		retry:         retry.withDefaults(),
		now:           time.Now,
		logger:        logger,
	}
}

// UpdateProfileRequest carries an edit. Nil fields are left unchanged; an
// empty avatar clears it.
type UpdateProfileRequest struct {
	DisplayName *string
	AvatarRef   *string
}

// UpdateProfile applies an edit, creating the account if it does not exist.
// The edit marks the account active now and never touches earned totals or
// post counts.
func (s *ProfileService) UpdateProfile(ctx context.Context, address string, req UpdateProfileRequest) (*domain.Account, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	var update domain.ProfileUpdate
	if req.DisplayName != nil {
		name := normalize.Text(*req.DisplayName)
		if normalize.Length(name) > domain.MaxDisplayNameLength {
			return nil, domainerrors.Validationf("display name exceeds %d characters", domain.MaxDisplayNameLength).
				WithDetails(map[string]string{"display_name": "too long"})
		}
		update.DisplayName = &name
	}
	if req.AvatarRef != nil {
		ref, err := contentref.ResolveOptional(*req.AvatarRef, s.contentScheme)
		if err != nil {
			return nil, err
		}
		update.AvatarRef = &ref
	}
	if update.Empty() {
		return nil, domainerrors.Validation("nothing to update")
	}

	var acct *domain.Account
	err = retryConflicts(ctx, s.retry, func() error {
		var err error
		acct, err = s.index.UpdateProfile(ctx, addr, update, s.now().UTC())
		return err
	}, func(err error, wait time.Duration) {
		s.logger.Debug("profile write conflict, retrying", "address", addr, "retry_in", wait)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "address", addr)
	return acct, nil
}
