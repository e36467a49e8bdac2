package dto

import (
	"github.com/hugh/taskhub/internal/api/validation"
	"github.com/hugh/taskhub/internal/database/models"
)

const maxFieldLength = 255

type RegisterRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	CompanyName       string `json:"company_name"`
	CompanyIdentifier string `json:"company_identifier"`
}

func (r RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	requireText(errors, "name", "Name", r.Name)
	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) || !validation.MaxLength(r.Email, maxFieldLength) {
		errors["email"] = "Email must be a valid email address"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 6 {
		errors["password"] = "Password must be at least 6 characters"
	}
	requireText(errors, "company_name", "Company name", r.CompanyName)
	requireText(errors, "company_identifier", "Company identifier", r.CompanyIdentifier)

	return errors
}

func requireText(errors map[string]string, field, label, value string) {
	switch {
	case validation.IsBlank(value):
		errors[field] = label + " is required"
	case !validation.MaxLength(value, maxFieldLength):
		errors[field] = label + " must be at most 255 characters"
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Email must be a valid email address"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type AuthResponse struct {
	User    UserDTO `json:"user"`
	Token   string  `json:"token"`
	Message string  `json:"message"`
}

type UserDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name,omitempty"`
}

func NewUserDTO(u *models.User) UserDTO {
	out := UserDTO{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		CompanyID: u.CompanyID.String(),
	}
	if u.Company != nil {
		out.CompanyName = u.Company.Name
	}
	return out
}
