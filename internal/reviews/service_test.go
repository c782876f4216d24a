package reviews

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/db/dbtest"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type harness struct {
	db      *gorm.DB
	svc     Service
	product models.Product
	buyer   auth.Actor
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), orders.NewRepository(conn), nil)
	require.NoError(t, err)

	category := dbtest.Category(t, conn, "Accessories")
	product := dbtest.Product(t, conn, category, 50000, 10)
	buyer := dbtest.User(t, conn, enums.RoleCustomer)
	return harness{
		db:      conn,
		svc:     svc,
		product: product,
		buyer:   auth.Actor{UserID: buyer.ID, Role: enums.RoleCustomer},
	}
}

func (h harness) purchase(t *testing.T, actor auth.Actor) {
	t.Helper()
	var user models.User
	require.NoError(t, h.db.Take(&user, "id = ?", actor.UserID).Error)
	dbtest.Order(t, h.db, user, enums.PaymentStatusUnpaid, models.OrderItem{ProductID: h.product.ID, Quantity: 1, Price: h.product.Price})
}

func TestAddReviewRequiresPurchase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.AddReview(ctx, h.buyer, AddReviewInput{ProductID: h.product.ID, Rating: 5})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	var count int64
	require.NoError(t, h.db.Model(&models.Review{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddReviewOncePerProduct(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.purchase(t, h.buyer)

	created, err := h.svc.AddReview(ctx, h.buyer, AddReviewInput{ProductID: h.product.ID, Rating: 4, Comment: "  nice fabric  "})
	require.NoError(t, err)
	assert.Equal(t, "nice fabric", created.Comment)
	assert.Equal(t, 4, created.Rating)

	_, err = h.svc.AddReview(ctx, h.buyer, AddReviewInput{ProductID: h.product.ID, Rating: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	var count int64
	require.NoError(t, h.db.Model(&models.Review{}).Where("product_id = ?", h.product.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUniqueIndexBacksUpDuplicateCheck(t *testing.T) {
	h := newHarness(t)
	repo := NewRepository(h.db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Review{UserID: h.buyer.UserID, ProductID: h.product.ID, Rating: 3}))
	err := repo.Create(ctx, &models.Review{UserID: h.buyer.UserID, ProductID: h.product.ID, Rating: 5})
	require.Error(t, err)
}

func TestAddReviewValidatesInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.purchase(t, h.buyer)

	for _, rating := range []int{0, 6, -1} {
		_, err := h.svc.AddReview(ctx, h.buyer, AddReviewInput{ProductID: h.product.ID, Rating: rating})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err), "rating %d", rating)
	}

	_, err := h.svc.AddReview(ctx, auth.Actor{}, AddReviewInput{ProductID: h.product.ID, Rating: 5})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = h.svc.AddReview(ctx, h.buyer, AddReviewInput{ProductID: uuid.New(), Rating: 5})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestAddReviewCountsCommentInCharacters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.purchase(t, h.buyer)

	tooLong := strings.Repeat("é", maxCommentLength+1)
	_, err := h.svc.AddReview(ctx, h.buyer, AddReviewInput{ProductID: h.product.ID, Rating: 4, Comment: tooLong})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	// 2000 two-byte characters is 4000 bytes and still within the limit.
	atLimit := strings.Repeat("é", maxCommentLength)
	dto, err := h.svc.AddReview(ctx, h.buyer, AddReviewInput{ProductID: h.product.ID, Rating: 4, Comment: atLimit})
	require.NoError(t, err)
	assert.Equal(t, atLimit, dto.Comment)
}

func TestListReviewsNewestFirstWithSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	empty, err := h.svc.ListReviews(ctx, h.product.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.Reviews)
	assert.Zero(t, empty.Summary.Count)
	assert.Zero(t, empty.Summary.Average)

	base := time.Now().Add(-time.Hour)
	ratings := []int{5, 4, 4}
	var newest uuid.UUID
	for i, rating := range ratings {
		user := dbtest.User(t, h.db, enums.RoleCustomer)
		review := models.Review{UserID: user.ID, ProductID: h.product.ID, Rating: rating, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		dbtest.Seed(t, h.db, &review)
		newest = review.ID
	}

	list, err := h.svc.ListReviews(ctx, h.product.ID)
	require.NoError(t, err)
	require.Len(t, list.Reviews, 3)
	assert.Equal(t, newest, list.Reviews[0].ID)
	assert.NotEmpty(t, list.Reviews[0].UserName)
	assert.EqualValues(t, 3, list.Summary.Count)
	assert.InDelta(t, 4.3, list.Summary.Average, 0.001)
}
