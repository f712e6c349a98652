package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aquaflow-backend/internal/complaints"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
)

type stubComplaints struct {
	submitted  *complaints.SubmitInput
	shopParams *complaints.ShopListParams
	updated    enums.ComplaintStatus
	calls      int
}

func (s *stubComplaints) Submit(_ context.Context, _ uuid.UUID, input complaints.SubmitInput) (*complaints.ComplaintView, error) {
	s.calls++
	s.submitted = &input
	return &complaints.ComplaintView{ID: uuid.New(), Subject: input.Subject, Status: enums.ComplaintStatusOpen}, nil
}

func (s *stubComplaints) ListMine(context.Context, uuid.UUID, pagination.Params) (*complaints.ListResult, error) {
	s.calls++
	return &complaints.ListResult{Complaints: []complaints.ComplaintView{}}, nil
}

func (s *stubComplaints) ListForShop(_ context.Context, _ uuid.UUID, params complaints.ShopListParams) (*complaints.ShopListResult, error) {
	s.calls++
	s.shopParams = &params
	return &complaints.ShopListResult{Complaints: []complaints.ShopComplaintView{}}, nil
}

func (s *stubComplaints) UpdateStatus(_ context.Context, shopID, complaintID uuid.UUID, status enums.ComplaintStatus) (*complaints.ComplaintView, error) {
	s.calls++
	s.updated = status
	return &complaints.ComplaintView{ID: complaintID, ShopID: shopID, Status: status}, nil
}

func TestComplaintSubmitPassesParsedIDs(t *testing.T) {
	svc := &stubComplaints{}
	orderID := uuid.New()
	body := `{"subject":"Leaking jar","description":"The seal was broken","priority":"high","order_id":"` + orderID.String() + `"}`

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/complaints", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	ComplaintSubmit(svc, quietLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.NotNil(t, svc.submitted)
	require.NotNil(t, svc.submitted.OrderID)
	assert.Equal(t, orderID, *svc.submitted.OrderID)
	assert.Nil(t, svc.submitted.ShopID)
	assert.Equal(t, "high", svc.submitted.Priority)
}

func TestComplaintSubmitRejectsBadOrderID(t *testing.T) {
	svc := &stubComplaints{}
	body := `{"subject":"Late","description":"Two hours late","order_id":"nope"}`

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/complaints", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	ComplaintSubmit(svc, quietLogger())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, resp))
	assert.Zero(t, svc.calls)
}

func TestComplaintSubmitRequiresConsumer(t *testing.T) {
	svc := &stubComplaints{}
	body := `{"subject":"Late","description":"Two hours late"}`

	req := asShop(httptest.NewRequest(http.MethodPost, "/api/v1/users/complaints", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	ComplaintSubmit(svc, quietLogger())(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Zero(t, svc.calls)
}

func TestShopComplaintListStatusFilter(t *testing.T) {
	svc := &stubComplaints{}
	req := asShop(httptest.NewRequest(http.MethodGet, "/api/v1/shopkeeper/complaints?status=resolved", nil), uuid.New())
	resp := httptest.NewRecorder()
	ShopComplaintList(svc, quietLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NotNil(t, svc.shopParams)
	require.NotNil(t, svc.shopParams.Status)
	assert.Equal(t, enums.ComplaintStatusResolved, *svc.shopParams.Status)

	svc = &stubComplaints{}
	req = asShop(httptest.NewRequest(http.MethodGet, "/api/v1/shopkeeper/complaints?status=closed", nil), uuid.New())
	resp = httptest.NewRecorder()
	ShopComplaintList(svc, quietLogger())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, svc.calls)
}

func TestShopComplaintUpdateStatus(t *testing.T) {
	complaintID := uuid.New()

	cases := []struct {
		name   string
		param  string
		body   string
		status int
	}{
		{name: "resolves", param: complaintID.String(), body: `{"status":"resolved"}`, status: http.StatusOK},
		{name: "unknown status", param: complaintID.String(), body: `{"status":"closed"}`, status: http.StatusBadRequest},
		{name: "bad id", param: "not-a-uuid", body: `{"status":"resolved"}`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubComplaints{}
			req := httptest.NewRequest(http.MethodPut, "/api/v1/shopkeeper/complaints/"+tc.param+"/status", strings.NewReader(tc.body))
			req = addRouteParam(asShop(req, uuid.New()), "complaintId", tc.param)
			resp := httptest.NewRecorder()
			ShopComplaintUpdateStatus(svc, quietLogger())(resp, req)

			require.Equal(t, tc.status, resp.Code, resp.Body.String())
			if tc.status == http.StatusOK {
				assert.Equal(t, enums.ComplaintStatusResolved, svc.updated)
			} else {
				assert.Zero(t, svc.calls)
			}
		})
	}
}

func TestComplaintHandlersWithoutService(t *testing.T) {
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/complaints", nil), uuid.New())
	resp := httptest.NewRecorder()
	ComplaintListMine(nil, quietLogger())(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, resp))
}
