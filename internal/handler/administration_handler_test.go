package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/ollamap/internal/model"
)

// mockAdministrationService はAdministrationServiceInterfaceのモック実装。
type mockAdministrationService struct {
	requestAdministrationFn func(ctx context.Context, markerID, userID string) (*model.AdminRequest, error)
	respondRequestFn        func(ctx context.Context, requestID string, response model.RequestStatus, userID string) (*model.Marker, error)
}

func (m *mockAdministrationService) RequestAdministration(ctx context.Context, markerID, userID string) (*model.AdminRequest, error) {
	if m.requestAdministrationFn != nil {
		return m.requestAdministrationFn(ctx, markerID, userID)
	}
	return nil, nil
}

func (m *mockAdministrationService) RespondRequest(ctx context.Context, requestID string, response model.RequestStatus, userID string) (*model.Marker, error) {
	if m.respondRequestFn != nil {
		return m.respondRequestFn(ctx, requestID, response, userID)
	}
	return nil, nil
}

// --- POST /api/markers/:id/admin-requests テスト ---

func TestAdministrationHandler_RequestAdministration_Success(t *testing.T) {
	svc := &mockAdministrationService{
		requestAdministrationFn: func(ctx context.Context, markerID, userID string) (*model.AdminRequest, error) {
			if markerID != "marker-1" || userID != "user-123" {
				t.Errorf("RequestAdministration(%q, %q), want (marker-1, user-123)", markerID, userID)
			}
			return &model.AdminRequest{
				ID:       "req-1",
				MarkerID: markerID,
				UserID:   userID,
				Status:   model.RequestStatusPending,
			}, nil
		},
	}
	h := NewAdministrationHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/markers/marker-1/admin-requests", nil)
	req = withChiURLParam(req, "id", "marker-1")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.RequestAdministration(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp adminRequestResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != string(model.RequestStatusPending) {
		t.Errorf("status = %q, want %q", resp.Status, model.RequestStatusPending)
	}
}

func TestAdministrationHandler_RequestAdministration_AlreadyRequested(t *testing.T) {
	svc := &mockAdministrationService{
		requestAdministrationFn: func(ctx context.Context, markerID, userID string) (*model.AdminRequest, error) {
			return nil, model.NewAlreadyRequestedAdministrationError()
		},
	}
	h := NewAdministrationHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/markers/marker-1/admin-requests", nil)
	req = withChiURLParam(req, "id", "marker-1")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.RequestAdministration(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeAlreadyRequestedAdmin {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeAlreadyRequestedAdmin)
	}
}

// --- POST /api/admin-requests/:id/respond テスト ---

func TestAdministrationHandler_RespondRequest_Accepted(t *testing.T) {
	svc := &mockAdministrationService{
		respondRequestFn: func(ctx context.Context, requestID string, response model.RequestStatus, userID string) (*model.Marker, error) {
			if requestID != "req-1" {
				t.Errorf("requestID = %q, want %q", requestID, "req-1")
			}
			if response != model.RequestStatusAccepted {
				t.Errorf("response = %q, want %q", response, model.RequestStatusAccepted)
			}
			m := testMarker("marker-1")
			m.Owners = append(m.Owners, "requester-1")
			return m, nil
		},
	}
	h := NewAdministrationHandler(svc)

	body := `{"response":"accepted"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin-requests/req-1/respond", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "req-1")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.RespondRequest(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp markerResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Owners) != 2 {
		t.Errorf("owners = %v, want 2 entries", resp.Owners)
	}
}

func TestAdministrationHandler_RespondRequest_NotOwner(t *testing.T) {
	svc := &mockAdministrationService{
		respondRequestFn: func(ctx context.Context, requestID string, response model.RequestStatus, userID string) (*model.Marker, error) {
			return nil, model.NewUserNotAllowedError()
		},
	}
	h := NewAdministrationHandler(svc)

	body := `{"response":"rejected"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin-requests/req-1/respond", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "req-1")
	req = withUserID(req, "intruder")
	w := httptest.NewRecorder()

	h.RespondRequest(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestAdministrationHandler_RespondRequest_InvalidBody(t *testing.T) {
	h := NewAdministrationHandler(&mockAdministrationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin-requests/req-1/respond", bytes.NewBufferString("not json"))
	req = withChiURLParam(req, "id", "req-1")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.RespondRequest(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
