package users

// CreateUserRequest is the profile accepted when registering a user.
type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=255"`
	FirstName   string `json:"first_name" validate:"required,max=255"`
	LastName    string `json:"last_name" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email,max=255"`
	PhoneNumber string `json:"phone_number" validate:"required,min=5,max=32"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
}

// UpdateUserRequest is a partial profile update. Omitted fields are untouched.
type UpdateUserRequest struct {
	FirstName     *string `json:"first_name,omitempty" validate:"omitempty,max=255"`
	LastName      *string `json:"last_name,omitempty" validate:"omitempty,max=255"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	PhoneNumber   *string `json:"phone_number,omitempty" validate:"omitempty,min=5,max=32"`
	EmailVerified *bool   `json:"email_verified,omitempty"`
}

// ResetPasswordRequest carries the replacement password.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (r UpdateUserRequest) toDTO() UpdateUserDTO {
	return UpdateUserDTO{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		PhoneNumber:   r.PhoneNumber,
		EmailVerified: r.EmailVerified,
	}
}
