package dto

// TokenRequest is the token endpoint payload, accepted as form or JSON.
type TokenRequest struct {
	GrantType    string `json:"grant_type" form:"grant_type"`
	ClientID     string `json:"client_id" form:"client_id"`
	ClientSecret string `json:"client_secret" form:"client_secret"`
	UserName     string `json:"username" form:"username"`
	Password     string `json:"password" form:"password"`
	TokenFormat  string `json:"token_format" form:"token_format"`
}

// TokenResponse is a successful token endpoint response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenFormat string `json:"token_format"`
}

// GrantErrorResponse reports a rejected grant.
type GrantErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenActionRequest names a token for introspection or revocation.
type TokenActionRequest struct {
	Token        string `json:"token" form:"token"`
	ClientID     string `json:"client_id" form:"client_id"`
	ClientSecret string `json:"client_secret" form:"client_secret"`
}
