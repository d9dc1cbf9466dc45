package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/services"
)

// Context keys set by the auth middleware
const (
	userIDKey          = "user_id"
	accessTokenKey     = "access_token"
	validatedClaimsKey = "validated_claims"
	staffKey           = "staff"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Scope string `json:"scope"`
}

// Validate does nothing for this example, but we need
// it to satisfy validator.CustomClaims interface.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		log.Fatalf("[auth] Failed to parse the issuer url: %v", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		log.Fatalf("[auth] Failed to set up the jwt validator")
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("[auth] Encountered error while validating JWT: %v", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Printf("[auth] Failed to write error response: %v", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Set(userIDKey, token.RegisteredClaims.Subject)
			c.Set(validatedClaimsKey, token)
			c.Set(accessTokenKey, bearerToken(r.Header.Get("Authorization")))

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetAccessToken returns the raw bearer token of the current request
func GetAccessToken(c *gin.Context) (string, error) {
	token, ok := c.Get(accessTokenKey)
	if !ok {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}
	tokenStr, ok := token.(string)
	if !ok || tokenStr == "" {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}
	return tokenStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(validatedClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// RequireStaff resolves the token's subject to an active staff member and
// stores it in the context. On first sign-in the staff record is linked by
// email through Auth0's /userinfo endpoint.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
			return
		}
		accessToken, _ := GetAccessToken(c)

		staffService := services.NewStaffService(config.GetDB(), services.NewAuth0Service(config.GetConfig()))
		staff, err := staffService.LinkCurrentStaff(c.Request.Context(), auth0ID, accessToken)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				abortWithError(c, http.StatusForbidden, services.CodeStaffNotFound, "No active staff profile is linked to this account")
				return
			}
			log.Printf("[auth] Failed to resolve staff for %s: %v", auth0ID, err)
			abortWithError(c, http.StatusInternalServerError, "AUTH_ERROR", "Failed to resolve staff profile")
			return
		}

		c.Set(staffKey, *staff)
		c.Next()
	}
}

// GetStaff returns the staff member stored by RequireStaff
func GetStaff(c *gin.Context) (models.Staff, error) {
	value, exists := c.Get(staffKey)
	if !exists {
		return models.Staff{}, &AuthError{Code: "MISSING_STAFF", Message: "Staff not found in context"}
	}
	staff, ok := value.(models.Staff)
	if !ok {
		return models.Staff{}, &AuthError{Code: "INVALID_STAFF", Message: "Staff is not in the expected format"}
	}
	return staff, nil
}

// RequireRole allows the request through only when the current staff member
// holds one of roles. Admins always pass.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff, err := GetStaff(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "MISSING_STAFF", "Could not resolve the current staff member")
			return
		}

		if !staff.HasRole(roles...) {
			abortWithError(c, http.StatusForbidden, "INSUFFICIENT_ROLE", "Insufficient permissions to access this resource")
			return
		}

		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
