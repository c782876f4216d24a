package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Service manages a customer's address book. Every user with at least one
// address has exactly one default.
type Service interface {
	List(ctx context.Context, actor auth.Actor) ([]AddressDTO, error)
	Create(ctx context.Context, actor auth.Actor, input AddressInput) (*AddressDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input AddressInput) (*AddressDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	SetDefault(ctx context.Context, actor auth.Actor, id uuid.UUID) (*AddressDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

var errNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "address not found")

func (s *service) List(ctx context.Context, actor auth.Actor) ([]AddressDTO, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	out := make([]AddressDTO, len(rows))
	for i, row := range rows {
		out[i] = toDTO(row)
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input AddressInput) (*AddressDTO, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}
	input = normalize(input)
	if err := validate(input); err != nil {
		return nil, err
	}

	var created AddressDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.Count(ctx, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count addresses")
		}
		makeDefault := input.IsDefault || count == 0
		if makeDefault {
			if err := repo.ClearDefault(ctx, actor.UserID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		record := apply(input)
		record.UserID = actor.UserID
		record.IsDefault = makeDefault
		if err := repo.Create(ctx, &record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert address")
		}
		created = toDTO(record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, actor, created.ID, "address.created")
	return &created, nil
}

// Update rewrites the address fields. IsDefault=true moves the default here;
// false never clears the current default.
func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input AddressInput) (*AddressDTO, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}
	input = normalize(input)
	if err := validate(input); err != nil {
		return nil, err
	}

	var updated AddressDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := s.find(ctx, repo, actor.UserID, id)
		if err != nil {
			return err
		}
		record := apply(input)
		record.ID = existing.ID
		record.UserID = existing.UserID
		record.CreatedAt = existing.CreatedAt
		record.IsDefault = existing.IsDefault
		if err := repo.Update(ctx, &record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
		}
		if input.IsDefault && !existing.IsDefault {
			if err := s.moveDefault(ctx, repo, actor.UserID, id); err != nil {
				return err
			}
			record.IsDefault = true
		}
		updated = toDTO(record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, actor, id, "address.updated")
	return &updated, nil
}

// Delete removes the address. When it was the default, the most recently
// updated remaining address inherits the flag.
func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := actor.RequireUser(); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := s.find(ctx, repo, actor.UserID, id)
		if err != nil {
			return err
		}
		deleted, err := repo.Delete(ctx, actor.UserID, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
		}
		if !deleted {
			return errNotFound
		}
		if !existing.IsDefault {
			return nil
		}
		next, err := repo.MostRecent(ctx, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load next default address")
		}
		if next == nil {
			return nil
		}
		if _, err := repo.MarkDefault(ctx, actor.UserID, next.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote default address")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logEvent(ctx, actor, id, "address.deleted")
	return nil
}

func (s *service) SetDefault(ctx context.Context, actor auth.Actor, id uuid.UUID) (*AddressDTO, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}
	var out AddressDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := s.find(ctx, repo, actor.UserID, id)
		if err != nil {
			return err
		}
		if !existing.IsDefault {
			if err := s.moveDefault(ctx, repo, actor.UserID, id); err != nil {
				return err
			}
			existing.IsDefault = true
		}
		out = toDTO(*existing)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) find(ctx context.Context, repo Repository, userID, id uuid.UUID) (*models.Address, error) {
	existing, err := repo.Find(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return existing, nil
}

func (s *service) moveDefault(ctx context.Context, repo Repository, userID, id uuid.UUID) error {
	if err := repo.ClearDefault(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
	}
	ok, err := repo.MarkDefault(ctx, userID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark default address")
	}
	if !ok {
		return errNotFound
	}
	return nil
}

func (s *service) logEvent(ctx context.Context, actor auth.Actor, id uuid.UUID, event string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithUserID(ctx, actor.UserID.String())
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{"address_id": id.String()}), event)
}

func normalize(input AddressInput) AddressInput {
	input.Label = strings.TrimSpace(input.Label)
	input.Recipient = strings.TrimSpace(input.Recipient)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Street = strings.TrimSpace(input.Street)
	input.City = strings.TrimSpace(input.City)
	input.Province = strings.TrimSpace(input.Province)
	input.PostalCode = strings.TrimSpace(input.PostalCode)
	return input
}

func validate(input AddressInput) error {
	required := []struct {
		field string
		value string
	}{
		{"label", input.Label},
		{"recipient", input.Recipient},
		{"phone", input.Phone},
		{"street", input.Street},
		{"city", input.City},
		{"province", input.Province},
		{"postal_code", input.PostalCode},
	}
	var violations []pkgerrors.FieldError
	for _, r := range required {
		if r.value == "" {
			violations = append(violations, pkgerrors.FieldError{Field: r.field, Message: r.field + " is required"})
		}
	}
	if len(violations) > 0 {
		return pkgerrors.Validation("invalid address", violations)
	}
	return nil
}
