// Package validation provides input validation utilities.
package validation

import (
	"fmt"
	"regexp"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername checks if a username meets requirements.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(username) > 30 {
		return fmt.Errorf("username must not exceed 30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	if username[0] == '_' || username[0] == '-' || username[len(username)-1] == '_' || username[len(username)-1] == '-' {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}
	return nil
}

// ValidateEmail checks basic email format.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	return nil
}

// ValidatePassword bounds the password without imposing a composition
// policy. The upper bound is bcrypt's 72-byte input limit; anything
// longer would be silently truncated by the hasher.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}
	if len(password) > 72 {
		return fmt.Errorf("password must not exceed 72 bytes")
	}
	return nil
}

// ValidatePostBody bounds a post's text content.
func ValidatePostBody(body string) error {
	if body == "" {
		return fmt.Errorf("post body must not be empty")
	}
	if len(body) > 4096 {
		return fmt.Errorf("post body must not exceed 4096 characters")
	}
	return nil
}

// ValidateTagName checks a single tag label.
func ValidateTagName(name string) error {
	if name == "" {
		return fmt.Errorf("tag must not be empty")
	}
	if len(name) > 40 {
		return fmt.Errorf("tag must not exceed 40 characters")
	}
	return nil
}
