package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenDuration is the operator session lifetime. Sessions past half-life
// are refreshed by the middleware.
const TokenDuration = 24 * time.Hour

const cookieName = "auth_token"

type AuthHandler struct {
	cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

type LoginInput struct {
	Body struct {
		Email    string `json:"email" format:"email" doc:"Operator email"`
		Password string `json:"password" minLength:"1" doc:"Operator password"`
	}
}

type LoginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Message string `json:"message"`
	}
}

// HandleLogin checks the operator credentials against the configured email
// and bcrypt hash and sets the session cookie.
func (h *AuthHandler) HandleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	if input.Body.Email != h.cfg.OperatorEmail {
		return nil, huma.Error401Unauthorized("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.OperatorPassHash), []byte(input.Body.Password)); err != nil {
		return nil, huma.Error401Unauthorized("Invalid credentials")
	}

	token, err := h.GenerateToken()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate token")
	}

	out := &LoginOutput{
		SetCookie: http.Cookie{
			Name:     cookieName,
			Value:    token,
			Expires:  time.Now().Add(TokenDuration),
			HttpOnly: true,
			Path:     "/",
		},
	}
	out.Body.Message = "Logged in"
	return out, nil
}

type MeInput struct {
	Cookie string `header:"Cookie"`
}

type MeOutput struct {
	Body struct {
		Email string `json:"email"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *MeInput) (*MeOutput, error) {
	if !h.VerifyCookieHeader(input.Cookie) {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	res := &MeOutput{}
	res.Body.Email = h.cfg.OperatorEmail
	return res, nil
}

func (h *AuthHandler) GenerateToken() (string, error) {
	claims := jwt.MapClaims{
		"sub": h.cfg.OperatorEmail,
		"exp": time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

func (h *AuthHandler) parseToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
}

// VerifyCookieHeader reports whether a raw Cookie header carries a valid
// operator session. Used by the dual-auth routes, where a capability token
// is the alternative.
func (h *AuthHandler) VerifyCookieHeader(cookieHeader string) bool {
	if cookieHeader == "" {
		return false
	}
	req := http.Request{Header: http.Header{"Cookie": []string{cookieHeader}}}
	cookie, err := req.Cookie(cookieName)
	if err != nil {
		return false
	}
	token, err := h.parseToken(cookie.Value)
	return err == nil && token.Valid
}
