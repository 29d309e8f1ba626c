package authapi

import "time"

// SessionMode selects how the upstream API identifies a logged-in user.
type SessionMode string

const (
	// SessionModeCookie relies on cookies set by /auth/token; the login
	// response carries a {"message": ...} body.
	SessionModeCookie SessionMode = "cookie"

	// SessionModeBearer expects {"access": ...} from /auth/token and sends
	// it back as an Authorization bearer token.
	SessionModeBearer SessionMode = "bearer"
)

// ParseSessionMode validates a configured session mode.
func ParseSessionMode(s string) (SessionMode, bool) {
	switch SessionMode(s) {
	case SessionModeCookie:
		return SessionModeCookie, true
	case SessionModeBearer:
		return SessionModeBearer, true
	default:
		return "", false
	}
}

// RegisterRequest is the JSON body posted to /auth/register.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RegisterResponse is the part of the created user the portal reads.
type RegisterResponse struct {
	Username string `json:"username"`
}

// LoginRequest is sent to /auth/token as form-urlencoded data.
type LoginRequest struct {
	Username string
	Password string
}

// LoginResponse covers both observed /auth/token success shapes.
type LoginResponse struct {
	Message string `json:"message"`
	Access  string `json:"access"`

	// ExpiresAt is read from the access token's exp claim when the token is
	// a JWT. Zero when unknown.
	ExpiresAt time.Time `json:"-"`
}

// LogoutResponse is the /auth/logout success body.
type LogoutResponse struct {
	Message string `json:"message"`
}
