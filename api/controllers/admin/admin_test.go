package admin

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwanyu/marketplace-backend/api/middleware"
	internaladmin "github.com/iwanyu/marketplace-backend/internal/admin"
	internalorders "github.com/iwanyu/marketplace-backend/internal/orders"
	internalvendors "github.com/iwanyu/marketplace-backend/internal/vendors"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/outbox"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
)

type stubDashboard struct{}

func (stubDashboard) Dashboard(context.Context) (*internaladmin.DashboardDTO, error) {
	return &internaladmin.DashboardDTO{
		Users:    12,
		Vendors:  map[enums.VendorStatus]int64{enums.VendorStatusActive: 3},
		Revenue:  decimal.NewFromInt(90000),
		Currency: "RWF",
	}, nil
}

type stubVendorService struct {
	internalvendors.Service

	err         error
	lastActor   outbox.ActorRef
	lastInput   internalvendors.SetStatusInput
	lastFilters internalvendors.ListFilters
}

func (s *stubVendorService) SetStatus(_ context.Context, actor outbox.ActorRef, vendorID uuid.UUID, input internalvendors.SetStatusInput) (*internalvendors.VendorDTO, error) {
	s.lastActor, s.lastInput = actor, input
	if s.err != nil {
		return nil, s.err
	}
	return &internalvendors.VendorDTO{ID: vendorID, Status: input.Status}, nil
}

func (s *stubVendorService) List(_ context.Context, filters internalvendors.ListFilters, params pagination.Params) (pagination.Result[internalvendors.VendorDTO], error) {
	s.lastFilters = filters
	return pagination.NewResult([]internalvendors.VendorDTO{}, params.Normalize(), 0), nil
}

type stubOrdersService struct {
	internalorders.Service

	lastFilters internalorders.ListFilters
	lastInput   internalorders.UpdateStatusInput
}

func (s *stubOrdersService) AdminList(_ context.Context, filters internalorders.ListFilters, params pagination.Params) (pagination.Result[internalorders.OrderSummaryDTO], error) {
	s.lastFilters = filters
	return pagination.NewResult([]internalorders.OrderSummaryDTO{}, params.Normalize(), 0), nil
}

func (s *stubOrdersService) UpdateStatus(_ context.Context, _ outbox.ActorRef, _ uuid.UUID, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error) {
	s.lastInput = input
	return &internalorders.OrderDTO{}, nil
}

func adminRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, enums.UserRoleAdmin)
	return req.WithContext(ctx)
}

func withIDParam(req *http.Request, id string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestDashboard(t *testing.T) {
	resp := httptest.NewRecorder()
	Dashboard(stubDashboard{}, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/dashboard", ""))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data struct {
			Users    int64            `json:"users"`
			Vendors  map[string]int64 `json:"vendors"`
			Revenue  string           `json:"revenue"`
			Currency string           `json:"currency"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, int64(12), envelope.Data.Users)
	assert.Equal(t, int64(3), envelope.Data.Vendors["ACTIVE"])
	assert.Equal(t, "90000", envelope.Data.Revenue)
}

func TestSetVendorStatusNormalizesStatus(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubVendorService{}
	req := adminRequest(http.MethodPatch, "/api/admin/vendors/"+vendorID.String()+"/status", `{"status":"active","reason":"documents verified"}`)
	resp := httptest.NewRecorder()
	SetVendorStatus(svc, nil).ServeHTTP(resp, withIDParam(req, vendorID.String()))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, enums.VendorStatusActive, svc.lastInput.Status)
	require.NotNil(t, svc.lastInput.Reason)
	assert.Equal(t, enums.UserRoleAdmin, svc.lastActor.Role)

	svc.err = pkgerrors.New(pkgerrors.CodeBadRequest, "cannot move vendor from REJECTED to PENDING")
	req = adminRequest(http.MethodPatch, "/api/admin/vendors/"+vendorID.String()+"/status", `{"status":"PENDING"}`)
	resp = httptest.NewRecorder()
	SetVendorStatus(svc, nil).ServeHTTP(resp, withIDParam(req, vendorID.String()))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListVendorsRejectsUnknownStatus(t *testing.T) {
	svc := &stubVendorService{}
	resp := httptest.NewRecorder()
	ListVendors(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/vendors?status=banned", ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	ListVendors(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/vendors?status=pending&q=craft", ""))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.lastFilters.Status)
	assert.Equal(t, enums.VendorStatusPending, *svc.lastFilters.Status)
	assert.Equal(t, "craft", svc.lastFilters.Query)
}

func TestAdminOrders(t *testing.T) {
	svc := &stubOrdersService{}
	resp := httptest.NewRecorder()
	ListOrders(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/orders?payment_status=paid", ""))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.lastFilters.PaymentStatus)
	assert.Equal(t, enums.OrderPaymentPaid, *svc.lastFilters.PaymentStatus)

	orderID := uuid.NewString()
	req := adminRequest(http.MethodPatch, "/api/admin/orders/"+orderID+"/status", `{"status":"shipped","tracking_number":"RW123"}`)
	resp = httptest.NewRecorder()
	UpdateOrderStatus(svc, nil).ServeHTTP(resp, withIDParam(req, orderID))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, enums.OrderStatusShipped, svc.lastInput.Status)
	require.NotNil(t, svc.lastInput.TrackingNumber)
	assert.Equal(t, "RW123", *svc.lastInput.TrackingNumber)
}
