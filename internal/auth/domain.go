package auth

// LoginInput is the payload of POST /auth/login.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput is the payload of POST /auth/register.
type RegisterInput struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	RoleID   *string `json:"role_id"`
	IsActive *bool   `json:"is_active"`
}
