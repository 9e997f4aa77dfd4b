package models

// User is an account as returned by the users endpoint.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// UserDetails holds the profile attached to a user.
type UserDetails struct {
	ID     int64  `json:"id,omitempty"`
	UserID int64  `json:"user_id,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// UserWithDetails is a user combined with its optional profile.
type UserWithDetails struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	Details   *UserDetails `json:"details,omitempty"`
	LastLogin string       `json:"last_login,omitempty"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration carries everything needed to create an account and its profile.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// DisplayName returns the profile name, falling back to the account email.
func (u UserWithDetails) DisplayName() string {
	if u.Details != nil && u.Details.Name != "" {
		return u.Details.Name
	}
	return u.Email
}
