package services

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=1,max=255" example:"ada"`
	Email    string `json:"email" binding:"required,email,max=255" example:"ada@example.com"`
}

// UpdateUserRequest represents a partial update; nil fields are left unchanged
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty" binding:"omitempty,min=1,max=255" example:"ada"`
	Email    *string `json:"email,omitempty" binding:"omitempty,email,max=255" example:"ada@example.com"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateUserRequest) IsEmpty() bool {
	return r.Username == nil && r.Email == nil
}

// DeleteUserResponse is returned after a user has been removed
type DeleteUserResponse struct {
	Success bool `json:"success" example:"true"`
}
