package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iwanyu/marketplace-backend/api/middleware"
	cartsvc "github.com/iwanyu/marketplace-backend/internal/cart"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
)

type stubCartService struct {
	cart      *cartsvc.CartDTO
	item      *cartsvc.ItemDTO
	err       error
	lastUser  uuid.UUID
	lastItem  uuid.UUID
	lastAdd   cartsvc.AddItemInput
	lastQty   int
	cleared   bool
	removeErr error
}

func (s *stubCartService) Get(_ context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	s.lastUser = userID
	return s.cart, s.err
}

func (s *stubCartService) Add(_ context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.ItemDTO, error) {
	s.lastUser = userID
	s.lastAdd = input
	return s.item, s.err
}

func (s *stubCartService) Update(_ context.Context, userID, itemID uuid.UUID, input cartsvc.UpdateItemInput) (*cartsvc.ItemDTO, error) {
	s.lastUser, s.lastItem, s.lastQty = userID, itemID, input.Quantity
	return s.item, s.err
}

func (s *stubCartService) Remove(_ context.Context, userID, itemID uuid.UUID) error {
	s.lastUser, s.lastItem = userID, itemID
	return s.removeErr
}

func (s *stubCartService) Clear(_ context.Context, userID uuid.UUID) error {
	s.lastUser = userID
	s.cleared = true
	return s.err
}

func (s *stubCartService) Count(_ context.Context, userID uuid.UUID) (*cartsvc.CountDTO, error) {
	s.lastUser = userID
	return &cartsvc.CountDTO{ItemCount: 2, TotalQuantity: 5}, s.err
}

func authed(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withItemParam(req *http.Request, itemID string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("itemId", itemID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestCartFetchSuccess(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{cart: &cartsvc.CartDTO{Items: []cartsvc.ItemDTO{}, Subtotal: decimal.NewFromInt(45), ItemCount: 1, TotalQuantity: 3}}

	req := authed(httptest.NewRequest(http.MethodGet, "/api/cart", nil), userID)
	resp := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartsvc.CartDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Subtotal.Equal(decimal.NewFromInt(45)) || envelope.Data.TotalQuantity != 3 {
		t.Fatalf("unexpected cart %+v", envelope.Data)
	}
	if svc.lastUser != userID {
		t.Fatalf("expected user %s got %s", userID, svc.lastUser)
	}
}

func TestCartFetchRequiresUser(t *testing.T) {
	resp := httptest.NewRecorder()
	CartFetch(&stubCartService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAdd(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{item: &cartsvc.ItemDTO{ID: uuid.New(), ProductID: productID, Quantity: 2}}

	body := `{"product_id":"` + productID.String() + `","quantity":2}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/cart", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	CartAdd(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastAdd.ProductID != productID || svc.lastAdd.Quantity != 2 || svc.lastAdd.VariantID != nil {
		t.Fatalf("unexpected input %+v", svc.lastAdd)
	}
}

func TestCartAddValidation(t *testing.T) {
	cases := map[string]string{
		"zero quantity":   `{"product_id":"` + uuid.NewString() + `","quantity":0}`,
		"missing product": `{"quantity":1}`,
		"unknown field":   `{"product_id":"` + uuid.NewString() + `","quantity":1,"price":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCartService{}
			req := authed(httptest.NewRequest(http.MethodPost, "/api/cart", strings.NewReader(body)), uuid.New())
			resp := httptest.NewRecorder()
			CartAdd(svc, nil).ServeHTTP(resp, req)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
		})
	}
}

func TestCartAddStockRejection(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeBadRequest, "only 1 left in stock")}
	body := `{"product_id":"` + uuid.NewString() + `","quantity":5}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/cart", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	CartAdd(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Message != "only 1 left in stock" {
		t.Fatalf("unexpected error %+v", envelope.Error)
	}
}

func TestCartUpdateAndRemove(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCartService{item: &cartsvc.ItemDTO{ID: itemID, Quantity: 4}}

	req := authed(httptest.NewRequest(http.MethodPut, "/api/cart/"+itemID.String(), strings.NewReader(`{"quantity":4}`)), uuid.New())
	resp := httptest.NewRecorder()
	CartUpdate(svc, nil).ServeHTTP(resp, withItemParam(req, itemID.String()))
	if resp.Code != http.StatusOK || svc.lastItem != itemID || svc.lastQty != 4 {
		t.Fatalf("update: code=%d item=%s qty=%d", resp.Code, svc.lastItem, svc.lastQty)
	}

	svc.removeErr = pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	req = authed(httptest.NewRequest(http.MethodDelete, "/api/cart/"+itemID.String(), nil), uuid.New())
	resp = httptest.NewRecorder()
	CartRemove(svc, nil).ServeHTTP(resp, withItemParam(req, itemID.String()))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("remove: expected 404 got %d", resp.Code)
	}

	req = authed(httptest.NewRequest(http.MethodDelete, "/api/cart/nope", nil), uuid.New())
	resp = httptest.NewRecorder()
	CartRemove(svc, nil).ServeHTTP(resp, withItemParam(req, "nope"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("remove bad id: expected 400 got %d", resp.Code)
	}
}

func TestCartClearAndCount(t *testing.T) {
	svc := &stubCartService{}
	req := authed(httptest.NewRequest(http.MethodDelete, "/api/cart", nil), uuid.New())
	resp := httptest.NewRecorder()
	CartClear(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !svc.cleared {
		t.Fatalf("clear: code=%d cleared=%v", resp.Code, svc.cleared)
	}

	req = authed(httptest.NewRequest(http.MethodGet, "/api/cart/count", nil), uuid.New())
	resp = httptest.NewRecorder()
	CartCount(svc, nil).ServeHTTP(resp, req)
	var envelope struct {
		Data cartsvc.CountDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ItemCount != 2 || envelope.Data.TotalQuantity != 5 {
		t.Fatalf("unexpected count %+v", envelope.Data)
	}
}
