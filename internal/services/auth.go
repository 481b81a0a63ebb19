package services

import (
	"errors"
	"fmt"

	"ecohub-core/config"

	"github.com/go-resty/resty/v2"
)

// Auth is the client for the external authentication verifier. The core
// never inspects credentials itself; it forwards the bearer token and gets
// back the resolved identity.
type Auth struct {
	client *resty.Client
}

type AuthUser struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

type authVerifyResponse struct {
	Status string   `json:"status"`
	Data   AuthUser `json:"data"`
}

var ErrInvalidToken = errors.New("invalid or expired token")

func NewAuthService(conf config.AuthApiConfig) *Auth {
	client := resty.New()
	client.SetBaseURL(conf.URL)
	client.SetHeader("api-key", conf.Token)

	return &Auth{client: client}
}

// VerifyToken resolves a bearer credential into (user id, verified-email).
func (a *Auth) VerifyToken(token string) (*AuthUser, error) {
	var result authVerifyResponse

	resp, err := a.client.R().
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&result).
		Post("/auth/verify")
	if err != nil {
		return nil, fmt.Errorf("error when verifying token with auth service: %w", err)
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, ErrInvalidToken
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("auth service returned status %d, body: %s", resp.StatusCode(), string(resp.Body()))
	}

	return &result.Data, nil
}
