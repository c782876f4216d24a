package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/slug"
)

// Service manages catalog categories.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CategoryInput) (*CategoryDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input CategoryInput) (*CategoryDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	List(ctx context.Context) ([]CategoryDTO, error)
}

// CategoryInput is the admin payload for create and update.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CategoryDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ProductCount int64     `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toDTO(c models.Category, count int64) *CategoryDTO {
	return &CategoryDTO{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		ProductCount: count,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
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
		return nil, fmt.Errorf("category repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CategoryInput) (*CategoryDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	name, err := cleanName(input.Name)
	if err != nil {
		return nil, err
	}

	category := &models.Category{Name: name}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if category.Slug, err = uniqueSlug(ctx, repo, name, uuid.Nil); err != nil {
			return err
		}
		if err := repo.Create(ctx, category); err != nil {
			return writeError(err, "insert category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logInfo(ctx, category, "category.created")
	return toDTO(*category, 0), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input CategoryInput) (*CategoryDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	name, err := cleanName(input.Name)
	if err != nil {
		return nil, err
	}

	var category *models.Category
	var count int64
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		category = found
		category.Name = name
		if slug.Make(name) != category.Slug {
			if category.Slug, err = uniqueSlug(ctx, repo, name, category.ID); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, category); err != nil {
			return writeError(err, "update category")
		}
		if count, err = repo.CountProducts(ctx, category.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category products")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logInfo(ctx, category, "category.updated")
	return toDTO(*category, count), nil
}

// Delete removes an empty category. Categories still holding products are
// rejected with a conflict.
func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountProducts(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category products")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "category still has products").
				WithDetails(map[string]any{"product_count": count})
		}
		deleted, err := repo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil
	})
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, len(rows))
	for i, row := range rows {
		out[i] = *toDTO(row.Category, row.ProductCount)
	}
	return out, nil
}

func cleanName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return "", pkgerrors.Validation("invalid category", []pkgerrors.FieldError{{Field: "name", Message: "name is required"}})
	}
	return name, nil
}

func uniqueSlug(ctx context.Context, repo Repository, name string, exclude uuid.UUID) (string, error) {
	value, err := slug.Unique(ctx, slug.Make(name), func(ctx context.Context, candidate string) (bool, error) {
		return repo.SlugTaken(ctx, candidate, exclude)
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "derive category slug")
	}
	return value, nil
}

func writeError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category slug already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func (s *service) logInfo(ctx context.Context, category *models.Category, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"category_id": category.ID.String(),
		"slug":        category.Slug,
	}), msg)
}
