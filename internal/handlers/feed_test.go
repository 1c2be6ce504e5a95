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

func TestFeedHandlers_StartStopManual_GetStatus(t *testing.T) {
	auth := &mockAuth{parseID: 7}
	mon := &mockMonitoring{status: feeder_control.Status{
		Stage:        "CHAIN_ONLY",
		TotalWeight:  1200,
		ChainRunning: true,
	}}
	fd := &mockFeeding{}
	s := &service.Service{
		Authorization: auth,
		Monitoring:    mon,
		Feeding:       fd,
	}
	r := newTestRouter(s)

	// GET status requires auth → 401 without header
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed/status", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	// With auth → 200 and status body
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/feed/status", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var st feeder_control.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if st.Stage != "CHAIN_ONLY" || st.TotalWeight != 1200 || !st.ChainRunning {
		t.Fatalf("unexpected status: %+v", st)
	}

	// POST /start with cycle → 200, calls Feeding.Start and includes state
	body := bytes.NewBufferString(`{"cycle":2}`)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/feed/start", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("start status=%d, body=%s", w.Code, w.Body.String())
	}
	if fd.startCalls != 1 || fd.lastCycle != 2 {
		t.Fatalf("Start calls=%d, cycle=%d", fd.startCalls, fd.lastCycle)
	}
	var resp struct {
		Status string                `json:"status"`
		Cycle  int                   `json:"cycle"`
		State  feeder_control.Status `json:"state"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != statusStarted || resp.Cycle != 2 {
		t.Fatalf("unexpected start response: %+v", resp)
	}
	if resp.State.Stage != "CHAIN_ONLY" {
		t.Fatalf("state missing/invalid in response: %+v", resp.State)
	}

	// POST /start without body → 200 with cycle 0
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/feed/start", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("start no body status=%d, body=%s", w.Code, w.Body.String())
	}
	if fd.lastCycle != 0 {
		t.Fatalf("expected default cycle 0, got %d", fd.lastCycle)
	}

	// POST /stop → 200, calls Feeding.Stop
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/feed/stop", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status=%d, body=%s", w.Code, w.Body.String())
	}
	if fd.stopCalls != 1 {
		t.Fatalf("expected Stop to be called once, got %d", fd.stopCalls)
	}

	// POST /manual → 200, drives the right relay
	body = bytes.NewBufferString(`{"device":"auger","on":true}`)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/feed/manual", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("manual status=%d, body=%s", w.Code, w.Body.String())
	}
	if fd.augerCalls != 1 || !fd.lastAuger {
		t.Fatalf("auger calls=%d, on=%v", fd.augerCalls, fd.lastAuger)
	}
}

func TestFeedHandlers_StartConflictAndBadCycle(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	fd := &mockFeeding{startErr: service.ErrFeedingInProgress}
	s := &service.Service{
		Authorization: auth,
		Monitoring:    &mockMonitoring{},
		Feeding:       fd,
	}
	r := newTestRouter(s)

	// Already feeding → 409
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feed/start", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while feeding, got %d (body=%s)", w.Code, w.Body.String())
	}

	// Cycle out of range → 400, service untouched
	before := fd.startCalls
	body := bytes.NewBufferString(`{"cycle":4}`)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/feed/start", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for cycle=4, got %d", w.Code)
	}
	if fd.startCalls != before {
		t.Fatalf("Start should not be called for invalid cycle")
	}
}

func TestFeedHandlers_ManualRejections(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	fd := &mockFeeding{chainErr: errors.New("feeding cycle active")}
	s := &service.Service{
		Authorization: auth,
		Monitoring:    &mockMonitoring{},
		Feeding:       fd,
	}
	r := newTestRouter(s)

	// Unknown device → 400
	body := bytes.NewBufferString(`{"device":"fan","on":true}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feed/manual", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown device, got %d", w.Code)
	}

	// Rejected while feeding → 409
	body = bytes.NewBufferString(`{"device":"chain","on":true}`)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/feed/manual", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 when rejected, got %d (body=%s)", w.Code, w.Body.String())
	}
	if fd.chainCalls != 1 {
		t.Fatalf("chain calls=%d", fd.chainCalls)
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := &service.Service{Authorization: &mockAuth{}, Monitoring: &mockMonitoring{}}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
	var m map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["status"] != statusOK {
		t.Fatalf("expected status ok, got %v", m)
	}
}
