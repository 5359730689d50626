package dto

import "github.com/noah-isme/elevate-booking-api/internal/models"

// CreateUserRequest provisions a staff account.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     models.UserRole `json:"role" validate:"omitempty,oneof=admin user"`
}

// UpdateUserRoleRequest changes the role of an account.
type UpdateUserRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=admin user"`
}
