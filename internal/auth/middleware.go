package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RequireOperator guards operator-only routes. A session past half-life is
// refreshed with a new cookie on the way through.
func (h *AuthHandler) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieName)
		if err != nil {
			if err == http.ErrNoCookie {
				http.Error(w, "Unauthorized: No token found", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		token, err := h.parseToken(cookie.Value)
		if err != nil || !token.Valid {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if exp, ok := claims["exp"].(float64); ok {
				remaining := time.Until(time.Unix(int64(exp), 0))
				if remaining < TokenDuration/2 {
					if newToken, err := h.GenerateToken(); err == nil {
						http.SetCookie(w, &http.Cookie{
							Name:     cookieName,
							Value:    newToken,
							Expires:  time.Now().Add(TokenDuration),
							HttpOnly: true,
							Path:     "/",
						})
					}
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}
