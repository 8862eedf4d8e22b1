package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
)

type addressBody struct {
	City string `json:"city" validate:"required"`
}

type sampleBody struct {
	Email    string      `json:"email" validate:"required,email"`
	Quantity int         `json:"quantity" validate:"required,gte=1"`
	Address  addressBody `json:"address"`
}

func TestDecodeJSONBodyFieldDetails(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","quantity":0,"address":{"city":""}}`))
	var body sampleBody
	err := DecodeJSONBody(r, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "is required", details["quantity"])
	assert.Equal(t, "is required", details["address.city"])
}

func TestDecodeJSONBodyRejectsUnknownAndEmpty(t *testing.T) {
	var body sampleBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","quantity":1,"address":{"city":"Kigali"},"admin":true}`))
	assert.Error(t, DecodeJSONBody(r, &body))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	err := DecodeJSONBody(r, &body)
	require.Error(t, err)
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","quantity":1,"address":{"city":"Kigali"}}`))
	require.NoError(t, DecodeJSONBody(r, &body))
	assert.Equal(t, "Kigali", body.Address.City)
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&limit=10", nil)
	p, err := ParsePagination(r)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.Limit)

	r = httptest.NewRequest(http.MethodGet, "/?limit=1000", nil)
	_, err = ParsePagination(r)
	assert.Error(t, err)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	p, err = ParsePagination(r)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
}

func TestParseQueryDecimalAndBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?min_price=12.50&in_stock=true&max_price=-1", nil)
	v, err := ParseQueryDecimal(r, "min_price")
	require.NoError(t, err)
	assert.Equal(t, "12.5", v.String())

	_, err = ParseQueryDecimal(r, "max_price")
	assert.Error(t, err)

	b, err := ParseQueryBool(r, "in_stock")
	require.NoError(t, err)
	assert.True(t, b)
}

func TestParsePathUUID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	_, err := ParsePathUUID(r, "id")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSanitizeHelpers(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))

	token, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)
	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
}

func TestParseQueryEnum(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?status=shipped&payment_status=BOGUS", nil)

	status, err := ParseQueryEnum(r, "status", enums.ParseOrderStatus)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, enums.OrderStatusShipped, *status)

	_, err = ParseQueryEnum(r, "payment_status", enums.ParseOrderPaymentStatus)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	missing, err := ParseQueryEnum(r, "vendor_status", enums.ParseVendorStatus)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
