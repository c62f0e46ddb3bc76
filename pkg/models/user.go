package models

// User is a platform user, keyed by the username supplied by the external
// identity system. Reconciliation only ever creates users; profile fields
// collected interactively (email, role) are authoritative and never
// overwritten by the feed.
type User struct {
	Username string  `json:"username" db:"username"`
	Surname  string  `json:"surname" db:"surname"`
	Name     string  `json:"name" db:"name"`
	Email    *string `json:"email,omitempty" db:"email"`
	RoleID   *int    `json:"role_id,omitempty" db:"role_id"`
	Admin    bool    `json:"admin" db:"admin"`
}

// UpdateProfileRequest is the request for updating the acting user's profile.
type UpdateProfileRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname" validate:"required"`
	RoleID  int    `json:"role_id"`
}

// ProfileResponse is the acting user's profile plus the selectable roles.
type ProfileResponse struct {
	User  User   `json:"user"`
	Roles []Role `json:"roles"`
}
