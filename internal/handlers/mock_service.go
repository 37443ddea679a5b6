package handlers

import (
	"context"
	"net/http"

	"smart_office/internal/models"
	"smart_office/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpOp      models.Operator
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parsed        models.Principal
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (models.Operator, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpOp, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (models.Principal, error) {
	m.lastParseToken = token
	return m.parsed, m.parseErr
}

type mockDevices struct {
	list      []models.DeviceState
	device    models.DeviceState
	getErr    error
	latest    models.LatestReading
	latestErr error
	history   []models.SensorRecord
	histErr   error
	cmdErr    error

	lastID     string
	lastLimit  int
	lastAction string
	cmdCalls   int
}

func (m *mockDevices) List(ctx context.Context) []models.DeviceState { return m.list }
func (m *mockDevices) Get(ctx context.Context, id string) (models.DeviceState, error) {
	m.lastID = id
	return m.device, m.getErr
}
func (m *mockDevices) Latest(ctx context.Context, id string) (models.LatestReading, error) {
	m.lastID = id
	return m.latest, m.latestErr
}
func (m *mockDevices) History(ctx context.Context, id string, limit int) ([]models.SensorRecord, error) {
	m.lastID = id
	m.lastLimit = limit
	return m.history, m.histErr
}
func (m *mockDevices) SendCommand(ctx context.Context, id, action string) error {
	m.cmdCalls++
	m.lastID = id
	m.lastAction = action
	return m.cmdErr
}
func (m *mockDevices) Hydrate(ctx context.Context) error { return nil }

type mockAlarms struct {
	resp      []models.AlarmRecord
	err       error
	updateErr error

	lastQuery  service.AlarmQuery
	lastID     string
	lastStatus string
	lastRemark string
}

func (m *mockAlarms) List(ctx context.Context, q service.AlarmQuery) ([]models.AlarmRecord, error) {
	m.lastQuery = q
	return m.resp, m.err
}
func (m *mockAlarms) UpdateStatus(ctx context.Context, id, status, remark string) error {
	m.lastID = id
	m.lastStatus = status
	m.lastRemark = remark
	return m.updateErr
}

type mockConfig struct {
	thresholds service.Thresholds
	entries    []models.ConfigEntry
	listErr    error
	updated    models.ConfigEntry
	updateErr  error

	lastType   string
	lastUpdate models.ConfigUpdate
}

func (m *mockConfig) Thresholds(ctx context.Context) service.Thresholds { return m.thresholds }
func (m *mockConfig) List(ctx context.Context, typ string) ([]models.ConfigEntry, error) {
	m.lastType = typ
	return m.entries, m.listErr
}
func (m *mockConfig) Update(ctx context.Context, u models.ConfigUpdate) (models.ConfigEntry, error) {
	m.lastUpdate = u
	return m.updated, m.updateErr
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...HandlerOption) *gin.Engine {
	h := NewHandler(s, nil, opts...)
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

// authed returns a service whose middleware accepts any bearer token as an
// admin.
func authed(s *service.Service) *service.Service {
	return authedAs(s, models.RoleAdmin)
}

func authedAs(s *service.Service, role models.Role) *service.Service {
	if s.Authorization == nil {
		s.Authorization = &mockAuth{parsed: models.Principal{OperatorID: 1, Username: "op", Role: role}}
	}
	return s
}
