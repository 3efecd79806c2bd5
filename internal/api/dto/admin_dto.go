package dto

// CreateUserRequest payload for operators registering users.
type CreateUserRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// CreateClientRequest payload for operators registering clients.
type CreateClientRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

// BlockRequest toggles the blocked flag of a user or client.
type BlockRequest struct {
	Blocked bool `json:"blocked"`
}
