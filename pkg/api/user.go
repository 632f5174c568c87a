package api

type (
	Role string

	// User is the operator an auth token was issued to
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
		Role     Role   `json:"role"`
	}

	// AuthResponse is returned by the login endpoint
	AuthResponse struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}
)

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)
