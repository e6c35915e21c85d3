package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	adminhandler "github.com/jwalitptl/followup-api/internal/handler/admin"
	authhandler "github.com/jwalitptl/followup-api/internal/handler/auth"
	followuphandler "github.com/jwalitptl/followup-api/internal/handler/followup"
	healthhandler "github.com/jwalitptl/followup-api/internal/handler/health"
	promhandler "github.com/jwalitptl/followup-api/internal/handler/prometheus"
	publichandler "github.com/jwalitptl/followup-api/internal/handler/public"
	"github.com/jwalitptl/followup-api/internal/middleware"
	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository/memory"
	"github.com/jwalitptl/followup-api/internal/service/admin"
	authsvc "github.com/jwalitptl/followup-api/internal/service/auth"
	"github.com/jwalitptl/followup-api/internal/service/clinic"
	"github.com/jwalitptl/followup-api/internal/service/disclosure"
	"github.com/jwalitptl/followup-api/internal/service/event"
	followupsvc "github.com/jwalitptl/followup-api/internal/service/followup"
	"github.com/jwalitptl/followup-api/internal/service/identifier"
	"github.com/jwalitptl/followup-api/internal/service/user"
	"github.com/jwalitptl/followup-api/pkg/auth"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
	"github.com/jwalitptl/followup-api/pkg/security"
	"github.com/jwalitptl/followup-api/pkg/validator"
)

const password = "correct-horse"

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	store   *memory.Store
	clinics *clinic.Service
	users   *user.Service
	engine  *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	log := logger.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", reg)
	ids := identifier.New(nil, m, log)
	events := event.NewEventService(store.Outbox(), log)
	v := validator.New()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	clinics := clinic.NewService(store.Clinics(), store.Memberships(), store.Users(), ids, events, log)
	users := user.NewService(store.Users(), clinics, hasher, v, log)
	authService := authsvc.NewService(store.Users(), clinics, auth.NewJWTService("test-secret", "test", time.Hour), hasher, m, log)
	followups := followupsvc.NewService(store.FollowUps(), ids, v, events, m, log)
	disclosures := disclosure.NewService(store.FollowUps(), store.ViewLogs(), store.Clinics(), events, m, log)

	r, err := NewRouter(middleware.NewAuthMiddleware(authService), Handlers{
		Auth:      authhandler.NewHandler(authService),
		FollowUps: followuphandler.NewHandler(followupsvc.NewGuard(followups, clinics)),
		Public:    publichandler.NewHandler(disclosures),
		Admin:     adminhandler.NewHandler(clinics, users, admin.NewService(store.FollowUps(), store.ViewLogs())),
		Health:    healthhandler.NewHandler(store),
		Metrics:   promhandler.New("test", reg),
	}, RouterConfig{LoginRate: rate.Inf, LoginBurst: 1, RequestTimeout: 5 * time.Second})
	require.NoError(t, err)
	r.Setup()

	return &testServer{store: store, clinics: clinics, users: users, engine: r.Engine()}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

// member creates a user in a fresh clinic (or no clinic) and logs them in.
func (s *testServer) member(t *testing.T, username, clinicName, role string) (string, *model.Clinic) {
	t.Helper()
	ctx := context.Background()

	req := model.CreateUserRequest{Username: username, Password: password, Role: role}
	var c *model.Clinic
	if clinicName != "" {
		var err error
		c, err = s.clinics.CreateClinic(ctx, clinicName)
		require.NoError(t, err)
		req.ClinicID = &c.ID
	}
	_, err := s.users.CreateUser(ctx, req)
	require.NoError(t, err)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tokens model.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	return tokens.AccessToken, c
}

func followUpBody(name, phone, due string) map[string]interface{} {
	return map[string]interface{}{
		"patient_name": name,
		"phone":        phone,
		"language":     "en",
		"due_date":     due,
	}
}

func (s *testServer) createFollowUp(t *testing.T, token, name string) model.FollowUp {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/followups", token, followUpBody(name, "98765 43210", "2025-02-01"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var f model.FollowUp
	require.NoError(t, json.Unmarshal(env.Data, &f))
	return f
}

func TestStaffRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/followups", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error", env.Status)

	w, _ = s.do(t, http.MethodGet, "/api/v1/followups", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t)
	s.member(t, "nurse", "Sunrise Clinic", model.RoleStaff)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{Username: "nurse", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", env.Message)
}

func TestCreateAndListFollowUps(t *testing.T) {
	s := newTestServer(t)
	token, c := s.member(t, "nurse", "Sunrise Clinic", model.RoleStaff)

	created := s.createFollowUp(t, token, "Alice")
	assert.Equal(t, c.ID, created.ClinicID)
	assert.Equal(t, model.FollowUpStatusPending, created.Status)
	assert.Len(t, created.PublicToken, 43)

	w, env := s.do(t, http.MethodGet, "/api/v1/followups?status=pending&date_from=2025-01-01&date_to=2025-12-31", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing followupsvc.Listing
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.Equal(t, 1, listing.Summary.Total)
	assert.Equal(t, 1, listing.Summary.Pending)
	require.Len(t, listing.Items, 1)
	assert.Equal(t, "Alice", listing.Items[0].PatientName)

	w, env = s.do(t, http.MethodPost, "/api/v1/followups/"+created.ID.String()+"/done", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var done model.FollowUp
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.Equal(t, model.FollowUpStatusDone, done.Status)
	assert.Equal(t, created.PublicToken, done.PublicToken)
}

func TestUpdateKeepsTokenAndClinic(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.member(t, "nurse", "Sunrise Clinic", model.RoleStaff)
	created := s.createFollowUp(t, token, "Alice")

	body := followUpBody("Alice Smith", "+91 98765 00000", "2025-03-01")
	body["public_token"] = "attacker-chosen"
	w, env := s.do(t, http.MethodPut, "/api/v1/followups/"+created.ID.String(), token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated model.FollowUp
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Alice Smith", updated.PatientName)
	assert.Equal(t, created.PublicToken, updated.PublicToken)
	assert.Equal(t, created.ClinicID, updated.ClinicID)
}

func TestCrossTenantAccessIsForbidden(t *testing.T) {
	s := newTestServer(t)
	tokenA, _ := s.member(t, "alice", "Clinic A", model.RoleStaff)
	tokenB, _ := s.member(t, "bob", "Clinic B", model.RoleStaff)
	f := s.createFollowUp(t, tokenA, "Patient of A")
	path := "/api/v1/followups/" + f.ID.String()

	w, env := s.do(t, http.MethodGet, path, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "cross-tenant access", env.Message)

	w, _ = s.do(t, http.MethodPut, path, tokenB, followUpBody("Hijack", "123", "2025-01-01"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, path+"/done", tokenB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/followups", tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing followupsvc.Listing
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.Empty(t, listing.Items)

	stored, err := s.store.FollowUps().Get(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Patient of A", stored.PatientName)
	assert.Equal(t, model.FollowUpStatusPending, stored.Status)
}

func TestUnknownFollowUpIsNotFound(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.member(t, "nurse", "Sunrise Clinic", model.RoleStaff)

	w, env := s.do(t, http.MethodGet, "/api/v1/followups/"+uuid.New().String(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "follow-up not found", env.Message)

	w, _ = s.do(t, http.MethodGet, "/api/v1/followups/not-an-id", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActorWithoutClinic(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.member(t, "drifter", "", model.RoleStaff)

	w, env := s.do(t, http.MethodGet, "/api/v1/followups", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "no clinic assigned to this user", env.Message)

	w, env = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		User   model.User    `json:"user"`
		Clinic *model.Clinic `json:"clinic"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "drifter", profile.User.Username)
	assert.Nil(t, profile.Clinic)
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.member(t, "nurse", "Sunrise Clinic", model.RoleStaff)

	w, env := s.do(t, http.MethodPost, "/api/v1/followups", token, followUpBody("Alice", "call me", "2025-01-01"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "phone", env.Field)

	w, env = s.do(t, http.MethodPost, "/api/v1/followups", token, followUpBody("Alice", "12345", "2025-13-01"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "due_date", env.Field)

	w, env = s.do(t, http.MethodGet, "/api/v1/followups?date_from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date_from", env.Field)

	w, env = s.do(t, http.MethodGet, "/api/v1/followups?status=archived", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status", env.Field)

	for _, e := range s.store.Events() {
		assert.NotEqual(t, model.EventFollowUpCreated, e.EventType)
	}
}

func TestPublicDisclosure(t *testing.T) {
	s := newTestServer(t)
	token, c := s.member(t, "nurse", "Sunrise Clinic", model.RoleStaff)
	f := s.createFollowUp(t, token, "Alice")
	ctx := context.Background()

	w, env := s.do(t, http.MethodGet, "/p/"+f.PublicToken, "", nil,
		"X-Forwarded-For", "203.0.113.7, 10.0.0.1",
		"User-Agent", "test-agent")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))

	var view disclosure.View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "Alice", view.PatientName)
	assert.Equal(t, c.Name, view.ClinicName)
	assert.Equal(t, disclosure.Notice(model.LanguageEnglish), view.Message)

	logs, err := s.store.ViewLogs().ListByFollowUp(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].IPAddress)
	assert.Equal(t, "203.0.113.7", *logs[0].IPAddress)
	require.NotNil(t, logs[0].UserAgent)
	assert.Equal(t, "test-agent", *logs[0].UserAgent)

	w, env = s.do(t, http.MethodGet, "/p/no-such-token", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "follow-up not found", env.Message)

	all, err := s.store.ViewLogs().List(ctx, model.ViewLogFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAdminRoutesRequireOperator(t *testing.T) {
	s := newTestServer(t)
	staffToken, _ := s.member(t, "nurse", "Sunrise Clinic", model.RoleStaff)
	opToken, _ := s.member(t, "ops", "", model.RoleOperator)

	w, env := s.do(t, http.MethodGet, "/api/v1/admin/clinics", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "operator role required", env.Message)

	w, _ = s.do(t, http.MethodGet, "/api/v1/admin/clinics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/admin/clinics", opToken, model.ClinicRequest{Name: "Moonrise Clinic"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.Clinic
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Len(t, created.ClinicCode, 8)

	w, env = s.do(t, http.MethodGet, "/api/v1/admin/clinics?search=moon", opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var clinics []model.Clinic
	require.NoError(t, json.Unmarshal(env.Data, &clinics))
	require.Len(t, clinics, 1)
	assert.Equal(t, created.ID, clinics[0].ID)
}

func TestAdminSearchAcrossClinics(t *testing.T) {
	s := newTestServer(t)
	tokenA, _ := s.member(t, "alice", "Clinic A", model.RoleStaff)
	tokenB, clinicB := s.member(t, "bob", "Clinic B", model.RoleStaff)
	opToken, _ := s.member(t, "ops", "", model.RoleOperator)
	s.createFollowUp(t, tokenA, "Ravi Kumar")
	fb := s.createFollowUp(t, tokenB, "Ravi Shah")

	w, env := s.do(t, http.MethodGet, "/api/v1/admin/followups?search=ravi", opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []model.FollowUpWithViews
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 2)

	w, env = s.do(t, http.MethodGet, "/api/v1/admin/followups?search=ravi&clinic_id="+clinicB.ID.String(), opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, fb.ID, items[0].ID)

	w, env = s.do(t, http.MethodGet, "/api/v1/admin/followups?language=fr", opToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "language", env.Field)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/v1/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/health/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}
