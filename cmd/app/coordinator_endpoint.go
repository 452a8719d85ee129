package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/marmeebeau/capstone-final/internal/middleware"
	"github.com/marmeebeau/capstone-final/internal/services"

	"github.com/labstack/echo/v4"
)

// write payloads arrive wrapped in "data", matching the client convention
type registerRequest struct {
	Data registerData `json:"data"`
}

type registerData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Contact   string `json:"contact"`
	Address   string `json:"address"`
	Role      string `json:"role,omitempty"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type updateRequest struct {
	Data updateData `json:"data"`
}

type updateData struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Contact         string `json:"contact"`
	Address         string `json:"address"`
	Role            string `json:"role,omitempty"`
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password,omitempty"`
}

type verifyPasswordRequest struct {
	UserID      int64  `json:"user_id"`
	OldPassword string `json:"old_password"`
}

// errorStatus maps service error categories to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrAuthentication), errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(c echo.Context, err error) error {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "something went wrong"
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func registerHandler(svc *services.CoordinatorService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(registerRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		created, err := svc.Register(c.Request().Context(), services.RegisterInput{
			FirstName: req.Data.FirstName,
			LastName:  req.Data.LastName,
			Username:  req.Data.Username,
			Email:     req.Data.Email,
			Password:  req.Data.Password,
			Contact:   req.Data.Contact,
			Address:   req.Data.Address,
			Role:      req.Data.Role,
		})
		if err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, created)
	}
}

func loginHandler(svc *services.CoordinatorService, jwtm *middleware.JWT) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(loginRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		coordinator, err := svc.Login(c.Request().Context(), req.Identifier, req.Password)
		if err != nil {
			if errors.Is(err, services.ErrValidation) {
				return jsonError(c, err)
			}
			// same answer for unknown identifier and bad password
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		token, err := jwtm.GenerateToken(coordinator.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create token"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"coordinator": coordinator,
			"token":       token,
		})
	}
}

func logoutHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		// tokens are stateless; logout is a client-side discard
		return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
	}
}

func listHandler(svc *services.CoordinatorService) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := svc.List(c.Request().Context())
		if err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func getHandler(svc *services.CoordinatorService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		coordinator, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, coordinator)
	}
}

func updateHandler(svc *services.CoordinatorService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		callerID, ok := middleware.CoordinatorID(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}
		caller, err := svc.Get(c.Request().Context(), callerID)
		if err != nil {
			// token subject no longer resolves to an account
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}
		req := new(updateRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		updated, err := svc.Update(c.Request().Context(), id, services.UpdateInput{
			FirstName:       req.Data.FirstName,
			LastName:        req.Data.LastName,
			Username:        req.Data.Username,
			Email:           req.Data.Email,
			Contact:         req.Data.Contact,
			Address:         req.Data.Address,
			Role:            req.Data.Role,
			CurrentPassword: req.Data.CurrentPassword,
			NewPassword:     req.Data.NewPassword,
		}, caller)
		if err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func verifyPasswordHandler(svc *services.CoordinatorService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(verifyPasswordRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		valid, err := svc.VerifyPassword(c.Request().Context(), req.UserID, req.OldPassword)
		if err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"valid": valid})
	}
}

func registerCoordinatorRoutes(api *echo.Group, svc *services.CoordinatorService, jwtm *middleware.JWT) {
	g := api.Group("/coordinators")

	// public
	g.POST("/register", registerHandler(svc))
	g.POST("/login", loginHandler(svc, jwtm))
	g.POST("/logout", logoutHandler())

	// authenticated
	auth := jwtm.Middleware()
	g.GET("/:id", getHandler(svc), auth)
	g.PUT("/:id", updateHandler(svc), auth)
	g.POST("/verify-password", verifyPasswordHandler(svc), auth)

	// admin-only
	g.GET("", listHandler(svc), auth, jwtm.RequireAdmin(svc.RoleOf))
}
