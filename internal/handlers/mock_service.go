package handlers

import (
	"context"
	"net/http"
	"time"

	"feeder_control"
	"feeder_control/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockFeeding struct {
	startErr   error
	stopErr    error
	augerErr   error
	chainErr   error
	lastCycle  int
	lastAuger  bool
	lastChain  bool
	startCalls int
	stopCalls  int
	augerCalls int
	chainCalls int
}

func (m *mockFeeding) Start(ctx context.Context, cycle int) error {
	m.startCalls++
	m.lastCycle = cycle
	return m.startErr
}
func (m *mockFeeding) Stop(ctx context.Context) error {
	m.stopCalls++
	return m.stopErr
}
func (m *mockFeeding) SetAuger(on bool) error {
	m.augerCalls++
	m.lastAuger = on
	return m.augerErr
}
func (m *mockFeeding) SetChain(on bool) error {
	m.chainCalls++
	m.lastChain = on
	return m.chainErr
}

type mockMonitoring struct {
	status feeder_control.Status
}

func (m *mockMonitoring) Status() feeder_control.Status {
	return m.status
}

type mockHistory struct {
	resp       []feeder_control.FeedRecord
	listErr    error
	clearErr   error
	clearCalls int
	lastFilter service.HistoryFilter
}

func (m *mockHistory) List(ctx context.Context, f service.HistoryFilter) ([]feeder_control.FeedRecord, error) {
	m.lastFilter = f
	return m.resp, m.listErr
}
func (m *mockHistory) Clear(ctx context.Context) error {
	m.clearCalls++
	return m.clearErr
}

type mockSettings struct {
	resp       feeder_control.FeedSettings
	getErr     error
	updateErr  error
	lastUpdate feeder_control.FeedSettings
}

func (m *mockSettings) Get(ctx context.Context) (feeder_control.FeedSettings, error) {
	return m.resp, m.getErr
}
func (m *mockSettings) Update(ctx context.Context, s feeder_control.FeedSettings) error {
	m.lastUpdate = s
	return m.updateErr
}

type mockLoop struct{}

func (m *mockLoop) Run(ctx context.Context, tick time.Duration) {}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
