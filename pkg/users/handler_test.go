package users

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

	"truststartup/pkg/response"
)

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Signup(ctx context.Context, input SignupInput) (User, string, error) {
	args := m.Called(ctx, input)
	user, _ := args.Get(0).(User)
	return user, args.String(1), args.Error(2)
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (User, string, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(User)
	return user, args.String(1), args.Error(2)
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockUserService) GetUserByToken(ctx context.Context, token string) (User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(User)
	return user, args.Error(1)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, token, firstName, lastName, username string) (User, error) {
	args := m.Called(ctx, token, firstName, lastName, username)
	user, _ := args.Get(0).(User)
	return user, args.Error(1)
}

func (m *mockUserService) GetUserByUsername(ctx context.Context, username string) (PublicProfile, error) {
	args := m.Called(ctx, username)
	profile, _ := args.Get(0).(PublicProfile)
	return profile, args.Error(1)
}

func setupUserRouter(service UserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewUserHandler(service)
	h.RegisterRoutes(r)
	return r
}

func TestUserHandler_Signup_Success(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc)

	svc.On("Signup", mock.Anything, mock.MatchedBy(func(in SignupInput) bool {
		return in.Username == "ada"
	})).Return(User{ID: 1, Username: "ada"}, "tok", nil)

	body := `{"first_name":"Ada","last_name":"Lovelace","username":"ada","email":"ada@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	svc.AssertExpectations(t)
}

func TestUserHandler_Signup_ShortPasswordRejected(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc)

	body := `{"first_name":"Ada","last_name":"Lovelace","username":"ada","email":"ada@example.com","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Signup")
}

func TestUserHandler_Signup_DuplicateEmail(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc)

	svc.On("Signup", mock.Anything, mock.Anything).Return(User{}, "", ErrEmailTaken)

	body := `{"first_name":"Ada","last_name":"Lovelace","username":"ada","email":"ada@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_Login_InvalidCredentials(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc)

	svc.On("Login", mock.Anything, "ada@example.com", "wrong").Return(User{}, "", ErrInvalidCredentials)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_Me_MissingToken(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "GetUserByToken")
}

func TestUserHandler_Me_Success(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc)

	svc.On("GetUserByToken", mock.Anything, "tok").Return(User{ID: 1, Username: "ada"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_UpdateProfile_UsernameTaken(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc)

	svc.On("UpdateProfile", mock.Anything, "tok", "Ada", "Lovelace", "taken").Return(User{}, ErrUsernameTaken)

	body := `{"first_name":"Ada","last_name":"Lovelace","username":"taken"}`
	req := httptest.NewRequest(http.MethodPut, "/auth/profile", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_GetUserByUsername_NotFound(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc)

	svc.On("GetUserByUsername", mock.Anything, "ghost").Return(PublicProfile{}, ErrUserNotFound)

	req := httptest.NewRequest(http.MethodGet, "/users/ghost", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertExpectations(t)
}
