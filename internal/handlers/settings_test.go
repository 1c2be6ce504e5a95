package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"feeder_control"
	"feeder_control/internal/service"
)

func TestSettingsHandlers_GetAndUpdate(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	cfg := feeder_control.FeedSettings{
		ID:              1,
		TargetWeight:    2500,
		ChainPreRunSec:  15,
		MaxRuntimeSec:   1200,
		FillThreshold:   40,
		FillSettlingSec: 90,
		RateThreshold:   8,
		FeedTimes:       []int{420, 1140},
		AutoFeed:        true,
	}
	st := &mockSettings{resp: cfg}
	s := &service.Service{
		Authorization: auth,
		Settings:      st,
	}
	r := newTestRouter(s)

	// GET requires auth
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	// GET → 200 and the persisted settings
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/settings/", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d, body=%s", w.Code, w.Body.String())
	}
	var got feeder_control.FeedSettings
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if got.TargetWeight != 2500 || !got.AutoFeed || len(got.FeedTimes) != 2 {
		t.Fatalf("unexpected settings: %+v", got)
	}

	// PUT → 200, passes the payload to the service
	body, _ := json.Marshal(cfg)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/settings/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("put status=%d, body=%s", w.Code, w.Body.String())
	}
	if st.lastUpdate.TargetWeight != 2500 || st.lastUpdate.MaxRuntimeSec != 1200 {
		t.Fatalf("update payload not forwarded: %+v", st.lastUpdate)
	}
}

func TestSettingsHandlers_UpdateValidationError(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	st := &mockSettings{updateErr: errors.New("target_weight must be positive")}
	s := &service.Service{
		Authorization: auth,
		Settings:      st,
	}
	r := newTestRouter(s)

	body := bytes.NewBufferString(`{"target_weight":-1}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body=%s)", w.Code, w.Body.String())
	}
	var out struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Error != "target_weight must be positive" {
		t.Fatalf("unexpected error: %q", out.Error)
	}
}
