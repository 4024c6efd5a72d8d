package startups

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"truststartup/pkg/metrics"
	"truststartup/pkg/response"
)

type mockStartupService struct {
	mock.Mock
}

func (m *mockStartupService) CreateStartup(ctx context.Context, input CreateStartupInput) (Startup, error) {
	args := m.Called(ctx, input)
	startup, _ := args.Get(0).(Startup)
	return startup, args.Error(1)
}

func (m *mockStartupService) UpdateStartup(ctx context.Context, id int64, token, name, bio, avatar string) (Startup, error) {
	args := m.Called(ctx, id, token, name, bio, avatar)
	startup, _ := args.Get(0).(Startup)
	return startup, args.Error(1)
}

func (m *mockStartupService) UpdateStripeKey(ctx context.Context, id int64, token, stripeKey string) (Startup, error) {
	args := m.Called(ctx, id, token, stripeKey)
	startup, _ := args.Get(0).(Startup)
	return startup, args.Error(1)
}

func (m *mockStartupService) SyncRevenue(ctx context.Context, id int64, token string) (Startup, error) {
	args := m.Called(ctx, id, token)
	startup, _ := args.Get(0).(Startup)
	return startup, args.Error(1)
}

func (m *mockStartupService) GetStartupByID(ctx context.Context, id int64) (Startup, error) {
	args := m.Called(ctx, id)
	startup, _ := args.Get(0).(Startup)
	return startup, args.Error(1)
}

func (m *mockStartupService) ListStartups(ctx context.Context, page, limit int) ([]Startup, int64, error) {
	args := m.Called(ctx, page, limit)
	startups, _ := args.Get(0).([]Startup)
	return startups, args.Get(1).(int64), args.Error(2)
}

func (m *mockStartupService) SearchStartups(ctx context.Context, q string) ([]Startup, error) {
	args := m.Called(ctx, q)
	startups, _ := args.Get(0).([]Startup)
	return startups, args.Error(1)
}

func (m *mockStartupService) ListStartupsByToken(ctx context.Context, token string) ([]Startup, error) {
	args := m.Called(ctx, token)
	startups, _ := args.Get(0).([]Startup)
	return startups, args.Error(1)
}

func (m *mockStartupService) DeleteStartup(ctx context.Context, id int64, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *mockStartupService) GetMetricsSummary(ctx context.Context, id int64) (metrics.Summary, error) {
	args := m.Called(ctx, id)
	summary, _ := args.Get(0).(metrics.Summary)
	return summary, args.Error(1)
}

func (m *mockStartupService) GetRevenueHistory(ctx context.Context, id int64, rangeStr string) ([]metrics.Point, error) {
	args := m.Called(ctx, id, rangeStr)
	points, _ := args.Get(0).([]metrics.Point)
	return points, args.Error(1)
}

func (m *mockStartupService) RefreshAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func setupStartupRouter(service StartupService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewStartupHandler(service)
	h.RegisterRoutes(r)
	return r
}

func TestStartupHandler_CreateStartup_Success(t *testing.T) {
	svc := new(mockStartupService)
	r := setupStartupRouter(svc)

	svc.On("CreateStartup", mock.Anything, mock.MatchedBy(func(in CreateStartupInput) bool {
		return in.Name == "Acme" && in.StripeKey == "sk_live_x" && in.Token == "tok"
	})).Return(Startup{ID: 1, Name: "Acme"}, nil)

	body := `{"name":"Acme","stripe_key":"sk_live_x"}`
	req := httptest.NewRequest(http.MethodPost, "/startups", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	svc.AssertExpectations(t)
}

func TestStartupHandler_CreateStartup_MissingStripeKey(t *testing.T) {
	svc := new(mockStartupService)
	r := setupStartupRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/startups", strings.NewReader(`{"name":"Acme"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreateStartup")
}

func TestStartupHandler_GetStartup_NotFound(t *testing.T) {
	svc := new(mockStartupService)
	r := setupStartupRouter(svc)

	svc.On("GetStartupByID", mock.Anything, int64(99)).Return(Startup{}, ErrStartupNotFound)

	req := httptest.NewRequest(http.MethodGet, "/startups/99", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertExpectations(t)
}

func TestStartupHandler_UpdateStartup_Unauthorized(t *testing.T) {
	svc := new(mockStartupService)
	r := setupStartupRouter(svc)

	svc.On("UpdateStartup", mock.Anything, int64(1), "tok", "New", "", "").
		Return(Startup{}, ErrUnauthorized)

	req := httptest.NewRequest(http.MethodPut, "/startups/1", strings.NewReader(`{"name":"New"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertExpectations(t)
}

func TestStartupHandler_Search_EmptyQuery(t *testing.T) {
	svc := new(mockStartupService)
	r := setupStartupRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/startups/search", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "SearchStartups")
}

func TestStartupHandler_SyncRevenue_Success(t *testing.T) {
	svc := new(mockStartupService)
	r := setupStartupRouter(svc)

	svc.On("SyncRevenue", mock.Anything, int64(4), "tok").Return(Startup{ID: 4, Revenue: 900}, nil)

	req := httptest.NewRequest(http.MethodPost, "/startups/4/sync", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestStartupHandler_MetricsHistory_PassesRange(t *testing.T) {
	svc := new(mockStartupService)
	r := setupStartupRouter(svc)

	svc.On("GetRevenueHistory", mock.Anything, int64(4), "7d").Return([]metrics.Point{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/startups/4/metrics/history?range=7d", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestStartupHandler_ListMine_MissingToken(t *testing.T) {
	svc := new(mockStartupService)
	r := setupStartupRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/startups/mine", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "ListStartupsByToken")
}

func TestStartupHandler_Delete_Success(t *testing.T) {
	svc := new(mockStartupService)
	r := setupStartupRouter(svc)

	svc.On("DeleteStartup", mock.Anything, int64(2), "tok").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/startups/2", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
