package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/amezhanin/skinstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type UserController struct {
	userService service.UserService
	logger      *zap.Logger
}

func NewUserController(userService service.UserService, logger *zap.Logger) *UserController {
	return &UserController{
		userService: userService,
		logger:      logger,
	}
}

func (c *UserController) List(w http.ResponseWriter, r *http.Request) {
	users, err := c.userService.List(r.Context())
	if err != nil {
		c.logger.Error("Failed to list users", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, users)
}

func (c *UserController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "User id must be a positive integer", http.StatusBadRequest)
		return
	}

	user, err := c.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		c.logger.Error("Failed to get user",
			zap.Int64("user_id", id),
			zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, user)
}
