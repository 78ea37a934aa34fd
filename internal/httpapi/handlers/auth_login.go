package handlers

import (
	"errors"
	"net/http"

	"mediahub/internal/auth"

	"github.com/labstack/echo/v4"
)

// Login authenticates against the local users table and returns a session
// token for the mutating endpoints.
func (h *Handler) Login(c echo.Context) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token, claims, err := h.auth.Login(c.Request().Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"token":    token,
		"subject":  claims.Subject,
		"is_admin": claims.IsAdmin,
	})
}
