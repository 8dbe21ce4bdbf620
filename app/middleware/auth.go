package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
)

// JWTAuth accepts HS256 bearer tokens carrying user_id (or sub) and email claims.
func JWTAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "authorization header missing"})
			}

			claims, err := decodeToken(tokenString, key)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid or expired token"})
			}

			userID := claimString(claims, "user_id")
			if userID == "" {
				userID = claimString(claims, "sub")
			}
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "token carries no user"})
			}

			c.Set(types.ContextUserIDKey, userID)
			c.Set(types.ContextEmailKey, claimString(claims, "email"))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.Trim(header, "\"' ")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.Trim(parts[1], "\"' ")
	return token, token != ""
}

func decodeToken(tokenString string, key []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signature method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func claimString(claims jwt.MapClaims, name string) string {
	switch value := claims[name].(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return fmt.Sprintf("%.0f", value)
	default:
		return ""
	}
}
