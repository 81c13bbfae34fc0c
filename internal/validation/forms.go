// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
)

const (
	UsernameMinLen = 1
	UsernameMaxLen = 40
	PasswordMinLen = 6
	PasswordMaxLen = 16
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// RegistrationForm is the typed registration request body.
type RegistrationForm struct {
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	Email           string `json:"email" form:"email"`
	ImageCode       string `json:"imagecode" form:"imagecode"`
}

// LoginForm is the typed login request body.
type LoginForm struct {
	Username  string `json:"username" form:"username"`
	Password  string `json:"password" form:"password"`
	ImageCode string `json:"imagecode" form:"imagecode"`
}

// ValidateRegistration checks structural constraints on a registration form.
// It returns a map of field name to message for every failing field; an empty
// map means the form passed. CAPTCHA and uniqueness checks are the caller's
// responsibility and happen only after this passes.
func ValidateRegistration(f RegistrationForm) map[string]string {
	fields := make(map[string]string)

	if f.Username == "" {
		fields["username"] = "Username is required"
	} else if len(f.Username) > UsernameMaxLen {
		fields["username"] = fmt.Sprintf("Username must be between %d and %d characters", UsernameMinLen, UsernameMaxLen)
	}

	if f.Password == "" {
		fields["password"] = "Password is required"
	} else if err := ValidatePasswordLength(f.Password); err != nil {
		fields["password"] = err.Error()
	}

	if f.ConfirmPassword == "" {
		fields["confirm_password"] = "Confirm password is required"
	} else if f.ConfirmPassword != f.Password {
		fields["confirm_password"] = "Passwords do not match"
	}

	if f.Email == "" {
		fields["email"] = "Email is required"
	} else if err := ValidateEmail(f.Email); err != nil {
		fields["email"] = err.Error()
	}

	if f.ImageCode == "" {
		fields["imagecode"] = "Verification code is required"
	}

	return fields
}

// ValidateLogin checks structural constraints on a login form.
func ValidateLogin(f LoginForm) map[string]string {
	fields := make(map[string]string)

	if f.Username == "" {
		fields["username"] = "Username is required"
	} else if len(f.Username) > UsernameMaxLen {
		fields["username"] = fmt.Sprintf("Username must be between %d and %d characters", UsernameMinLen, UsernameMaxLen)
	}

	if f.Password == "" {
		fields["password"] = "Password is required"
	}

	if f.ImageCode == "" {
		fields["imagecode"] = "Verification code is required"
	}

	return fields
}

// ValidatePasswordLength checks the password length bounds.
func ValidatePasswordLength(password string) error {
	if len(password) < PasswordMinLen || len(password) > PasswordMaxLen {
		return fmt.Errorf("The length of password should be between %d and %d", PasswordMinLen, PasswordMaxLen)
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}

	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}

	return nil
}
