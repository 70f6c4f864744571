package handlers

import (
	"net/http"

	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	users *services.UserService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Register handles local user registration with email and password
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.users.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// Login handles local login with email or username and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.users.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type firebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin exchanges a Firebase ID token for a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req firebaseLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.users.LoginWithFirebase(c.Request().Context(), req.IDToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
