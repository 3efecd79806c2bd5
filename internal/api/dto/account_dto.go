package dto

import "time"

// LoginRequest payload for interactive sign-in.
type LoginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
}

// LoginResponse carries the session handle issued on sign-in.
type LoginResponse struct {
	Subject   string    `json:"sub"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EndSessionRequest payload for sign-out.
type EndSessionRequest struct {
	PostLogoutRedirectURI string `json:"post_logout_redirect_uri" form:"post_logout_redirect_uri"`
}
