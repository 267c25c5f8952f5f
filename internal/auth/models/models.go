package models

import (
	"strings"
	"time"

	id "unearthify/pkg/domain"
	"unearthify/pkg/platform/validation"
)

// Role gates what a back-office account may do.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleEditor
}

// User is a back-office account.
type User struct {
	ID           id.UserID
	Email        string
	FullName     string
	Phone        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=64"`
}

func (r *SignInRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *SignInRequest) Validate() error {
	return validation.Validate(r)
}

// SignUpRequest is the body of POST /auth/signup. Password and phone rules
// are shared with the admin client, which checks them before sending.
type SignUpRequest struct {
	FullName string `json:"full_name" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,password"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,phone"`
}

func (r *SignUpRequest) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *SignUpRequest) Validate() error {
	return validation.Validate(r)
}

// UserResponse is the public view of a User.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
}

// AuthResponse is returned by sign-in and sign-up.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
		Role:     u.Role,
	}
}
