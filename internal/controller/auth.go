package controller

import (
	"errors"
	"net/http"

	"github.com/amezhanin/skinstore/internal/service"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type AuthController struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthController(authService service.AuthService, logger *zap.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := render.DecodeJSON(r.Body, &request); err != nil {
		c.logger.Debug("Invalid request format", zap.Error(err))
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if request.Email == "" || request.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, token, err := c.authService.Login(r.Context(), request.Email, request.Password)
	if err != nil {
		c.logger.Warn("Login failed",
			zap.String("email", request.Email),
			zap.Error(err))

		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidCredentials):
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	c.logger.Info("User logged in",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email))

	render.JSON(w, r, map[string]string{"token": token})
}

func (c *AuthController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email       string `json:"email"`
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}

	if err := render.DecodeJSON(r.Body, &request); err != nil {
		c.logger.Debug("Invalid request format", zap.Error(err))
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if request.Email == "" || request.OldPassword == "" || request.NewPassword == "" {
		http.Error(w, "All fields are required", http.StatusBadRequest)
		return
	}

	err := c.authService.ChangePassword(r.Context(), request.Email, request.OldPassword, request.NewPassword)
	if err != nil {
		c.logger.Warn("Password change rejected",
			zap.String("email", request.Email),
			zap.Error(err))

		switch {
		case errors.Is(err, service.ErrSamePassword):
			http.Error(w, "New password must differ from the old one", http.StatusBadRequest)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidCredentials):
			http.Error(w, "Old password is incorrect", http.StatusUnauthorized)
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}
