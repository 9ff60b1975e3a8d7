package models

// LoginCredentials carries a login attempt. Next is an optional redirect
// target echoed back to the caller; credentials are transient and never
// persisted as such.
type LoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next,omitempty"`
}

// RegisterCredentials carries a sign-up attempt.
type RegisterCredentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Next     string `json:"next,omitempty"`
}

// LoginFromRegister derives the credentials used to immediately
// authenticate a just-registered account.
func LoginFromRegister(creds RegisterCredentials) LoginCredentials {
	return LoginCredentials{
		Username: creds.Username,
		Password: creds.Password,
		Next:     creds.Next,
	}
}
