package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/marmeebeau/capstone-final/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const contextKeyCoordinatorID = "coordinator_id"

// RoleResolver loads the caller's current role from the store. Tokens do not
// carry a role; authorization is re-evaluated against stored state on every
// request.
type RoleResolver func(ctx context.Context, coordinatorID int64) (string, error)

// JWT issues and verifies the HS256 session tokens. The only claim the service
// relies on is the subject (coordinator id); iat/exp/jti are bookkeeping.
type JWT struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl, issuer: "capstone-api"}
}

// GenerateToken creates a signed token for the given coordinator.
func (j *JWT) GenerateToken(coordinatorID int64) (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(coordinatorID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		Issuer:    j.issuer,
		ID:        uuid.NewString(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(j.secret)
}

// ParseSubject verifies signature and expiry and returns the coordinator id.
func (j *JWT) ParseSubject(tokenString string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, jwt.ErrTokenUnverifiable
	}
	return strconv.ParseInt(claims.Subject, 10, 64)
}

// Middleware validates the bearer token and stores the caller's id on the
// request context.
func (j *JWT) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization header"})
			}
			parts := strings.Fields(auth)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization header"})
			}
			id, err := j.ParseSubject(parts[1])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			c.Set(contextKeyCoordinatorID, id)
			return next(c)
		}
	}
}

// CoordinatorID extracts the authenticated caller's id set by Middleware.
func CoordinatorID(c echo.Context) (int64, bool) {
	v := c.Get(contextKeyCoordinatorID)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// RequireAdmin gates a route on the caller's STORED role, never on anything
// the client sent. Must run after Middleware.
func (j *JWT) RequireAdmin(resolve RoleResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CoordinatorID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
			}
			role, err := resolve(c.Request().Context(), id)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
			}
			if role != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
			}
			return next(c)
		}
	}
}
