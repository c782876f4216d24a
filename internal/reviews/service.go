package reviews

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const maxCommentLength = 2000

const (
	msgNotPurchased    = "you must purchase this product before reviewing it"
	msgAlreadyReviewed = "you have already reviewed this product"
)

// Service accepts reviews from buyers and lists them publicly.
type Service interface {
	AddReview(ctx context.Context, actor auth.Actor, input AddReviewInput) (*ReviewDTO, error)
	ListReviews(ctx context.Context, productID uuid.UUID) (*ReviewListDTO, error)
}

type AddReviewInput struct {
	ProductID uuid.UUID `json:"-"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	Comment   string    `json:"comment" validate:"max=2000"`
}

type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewListDTO struct {
	Reviews []ReviewDTO `json:"reviews"`
	Summary Summary     `json:"summary"`
}

func toDTO(r models.Review) ReviewDTO {
	dto := ReviewDTO{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
	if r.User != nil {
		dto.UserName = r.User.Name
	}
	return dto
}

type purchaseChecker interface {
	UserHasOrderedProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type service struct {
	repo      Repository
	purchases purchaseChecker
	logg      *logger.Logger
}

// NewService wires the review service. purchases is usually the orders
// repository.
func NewService(repo Repository, purchases orders.Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if purchases == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo, purchases: purchases, logg: logg}, nil
}

// AddReview records one review per (user, product). The buyer must have at
// least one order containing the product.
func (s *service) AddReview(ctx context.Context, actor auth.Actor, input AddReviewInput) (*ReviewDTO, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}

	comment := strings.TrimSpace(input.Comment)
	var violations []pkgerrors.FieldError
	if input.Rating < 1 || input.Rating > 5 {
		violations = append(violations, pkgerrors.FieldError{Field: "rating", Message: "rating must be between 1 and 5"})
	}
	if utf8.RuneCountInString(comment) > maxCommentLength {
		violations = append(violations, pkgerrors.FieldError{Field: "comment", Message: fmt.Sprintf("comment must be at most %d characters", maxCommentLength)})
	}
	if len(violations) > 0 {
		return nil, pkgerrors.Validation("invalid review", violations)
	}

	exists, err := s.repo.ProductExists(ctx, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	reviewed, err := s.repo.Exists(ctx, actor.UserID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
	}
	if reviewed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgAlreadyReviewed)
	}

	purchased, err := s.purchases.UserHasOrderedProduct(ctx, actor.UserID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase history")
	}
	if !purchased {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgNotPurchased)
	}

	review := &models.Review{
		UserID:    actor.UserID,
		ProductID: input.ProductID,
		Rating:    input.Rating,
		Comment:   comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgAlreadyReviewed)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert review")
	}

	if s.logg != nil {
		logCtx := s.logg.WithProductID(ctx, input.ProductID.String())
		logCtx = s.logg.WithUserID(logCtx, actor.UserID.String())
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{"rating": review.Rating}), "review.created")
	}
	dto := toDTO(*review)
	return &dto, nil
}

func (s *service) ListReviews(ctx context.Context, productID uuid.UUID) (*ReviewListDTO, error) {
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	summary, err := s.repo.Summary(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize reviews")
	}
	summary.Average = math.Round(summary.Average*10) / 10

	out := &ReviewListDTO{Reviews: make([]ReviewDTO, len(rows)), Summary: summary}
	for i, row := range rows {
		out.Reviews[i] = toDTO(row)
	}
	return out, nil
}
