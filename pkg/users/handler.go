package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"truststartup/pkg/response"
)

type UserHandler struct {
	service UserService
}

func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/auth/signup", h.signup)
	router.POST("/auth/login", h.login)
	router.POST("/auth/logout", h.logout)
	router.GET("/auth/me", h.me)
	router.PUT("/auth/profile", h.updateProfile)
	router.GET("/users/:username", h.getUserByUsername)
}

type signupRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateProfileRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Username  string `json:"username" binding:"required"`
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// @Summary      Sign up
// @Description  Registers a founder account and opens a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body signupRequest true "Signup request"
// @Success      201 {object} response.APIResponse{data=authResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /auth/signup [post]
func (h *UserHandler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	u, token, err := h.service.Signup(c.Request.Context(), SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken) {
			response.SendAPIResponse(c, http.StatusConflict, false, err.Error(), nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	response.SendAPIResponse(c, http.StatusCreated, true, "account created", authResponse{Token: token, User: u})
}

// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body loginRequest true "Login request"
// @Success      200 {object} response.APIResponse{data=authResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /auth/login [post]
func (h *UserHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	u, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "invalid credentials", nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "logged in", authResponse{Token: token, User: u})
}

// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Router       /auth/logout [post]
func (h *UserHandler) logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "missing token", nil)
		return
	}

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "invalid token", nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "logged out", nil)
}

// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} response.APIResponse{data=User}
// @Failure      401 {object} response.APIResponse
// @Router       /auth/me [get]
func (h *UserHandler) me(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "missing token", nil)
		return
	}

	u, err := h.service.GetUserByToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrUserNotFound) {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "invalid token", nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "user fetched", u)
}

// @Summary      Update profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body updateProfileRequest true "Profile update request"
// @Success      200 {object} response.APIResponse{data=User}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /auth/profile [put]
func (h *UserHandler) updateProfile(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "missing token", nil)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	u, err := h.service.UpdateProfile(c.Request.Context(), token, req.FirstName, req.LastName, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "invalid token", nil)
		case errors.Is(err, ErrUsernameTaken):
			response.SendAPIResponse(c, http.StatusConflict, false, "username already taken", nil)
		case errors.Is(err, ErrUserNotFound):
			response.SendAPIResponse(c, http.StatusNotFound, false, "user not found", nil)
		default:
			response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		}
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "profile updated", u)
}

// @Summary      Get public profile
// @Tags         users
// @Produce      json
// @Param        username path string true "Username"
// @Success      200 {object} response.APIResponse{data=PublicProfile}
// @Failure      404 {object} response.APIResponse
// @Router       /users/{username} [get]
func (h *UserHandler) getUserByUsername(c *gin.Context) {
	profile, err := h.service.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.SendAPIResponse(c, http.StatusNotFound, false, "user not found", nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "user fetched", profile)
}
