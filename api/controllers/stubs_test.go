package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/address"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/orders"
	product "github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/internal/reviews"
	"github.com/angelmondragon/storefront/internal/users"
	pkgauth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/pagination"
	"github.com/angelmondragon/storefront/pkg/types"
)

var errStub = errors.New("stub not configured")

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

type requestOpts struct {
	body    string
	params  map[string]string
	userID  uuid.UUID
	role    enums.Role
	session string
}

func serve(t *testing.T, h http.HandlerFunc, method, target string, opts requestOpts) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if opts.body != "" {
		body = strings.NewReader(opts.body)
	}
	req := httptest.NewRequest(method, target, body)
	routeCtx := chi.NewRouteContext()
	for k, v := range opts.params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	if opts.userID != uuid.Nil {
		ctx = middleware.WithActor(ctx, opts.userID.String(), string(opts.role), opts.session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, rec.Body.String())
	}
	return env.Error
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

type stubAuthService struct {
	loginFn  func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	logoutFn func(ctx context.Context, sessionID string) error
}

func (s stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.loginFn == nil {
		return nil, errStub
	}
	return s.loginFn(ctx, req)
}

func (s stubAuthService) Logout(ctx context.Context, sessionID string) error {
	if s.logoutFn == nil {
		return errStub
	}
	return s.logoutFn(ctx, sessionID)
}

type stubRegisterService struct {
	registerFn func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error)
}

func (s stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	if s.registerFn == nil {
		return nil, errStub
	}
	return s.registerFn(ctx, req)
}

func (s stubRegisterService) RegisterAdmin(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return nil, errStub
}

type stubProductService struct {
	product.Service
	listFn     func(ctx context.Context, filters product.ListFilters, params pagination.Params) (pagination.Page[product.ProductDTO], error)
	deleteFn   func(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error
	featuredFn func(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, featured bool) (*product.ProductDTO, error)
}

func (s stubProductService) List(ctx context.Context, filters product.ListFilters, params pagination.Params) (pagination.Page[product.ProductDTO], error) {
	return s.listFn(ctx, filters, params)
}

func (s stubProductService) DeleteProduct(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error {
	return s.deleteFn(ctx, actor, id)
}

func (s stubProductService) ToggleFeatured(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, featured bool) (*product.ProductDTO, error) {
	return s.featuredFn(ctx, actor, id, featured)
}

type stubCheckoutService struct {
	createFn func(ctx context.Context, actor pkgauth.Actor, input checkout.CreateOrderInput) (*models.Order, error)
}

func (s stubCheckoutService) CreateOrder(ctx context.Context, actor pkgauth.Actor, input checkout.CreateOrderInput) (*models.Order, error) {
	return s.createFn(ctx, actor, input)
}

type stubOrdersService struct {
	orders.Service
	updateFn func(ctx context.Context, input orders.UpdateStatusInput) (*orders.UpdateStatusResult, error)
	listFn   func(ctx context.Context, actor pkgauth.Actor, filters orders.OrderFilters, params pagination.Params) (pagination.Page[models.Order], error)
}

func (s stubOrdersService) UpdateOrderStatus(ctx context.Context, input orders.UpdateStatusInput) (*orders.UpdateStatusResult, error) {
	return s.updateFn(ctx, input)
}

func (s stubOrdersService) ListOrders(ctx context.Context, actor pkgauth.Actor, filters orders.OrderFilters, params pagination.Params) (pagination.Page[models.Order], error) {
	return s.listFn(ctx, actor, filters, params)
}

type stubReviewService struct {
	addFn func(ctx context.Context, actor pkgauth.Actor, input reviews.AddReviewInput) (*reviews.ReviewDTO, error)
}

func (s stubReviewService) AddReview(ctx context.Context, actor pkgauth.Actor, input reviews.AddReviewInput) (*reviews.ReviewDTO, error) {
	return s.addFn(ctx, actor, input)
}

func (s stubReviewService) ListReviews(ctx context.Context, productID uuid.UUID) (*reviews.ReviewListDTO, error) {
	return &reviews.ReviewListDTO{}, nil
}

type stubAddressService struct {
	address.Service
	deleteFn func(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error
}

func (s stubAddressService) Delete(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error {
	return s.deleteFn(ctx, actor, id)
}

type stubReporter struct {
	body []byte
	err  error
}

func (s stubReporter) InventoryWorkbook(ctx context.Context, actor pkgauth.Actor) ([]byte, error) {
	return s.body, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }
