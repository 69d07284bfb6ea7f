package client

import "errors"

// Notification strings shown to the user. Backend error text is never shown.
const (
	NoticePasswordPolicy   = "Password must be at least 8 characters long and include both letters and numbers"
	NoticePasswordMismatch = "Passwords do not match"
	NoticeUserExists       = "Email or username already exists"
	NoticeBadCredentials   = "Email or password incorrect"
	NoticeRegistered       = "User registered successfully"
	NoticeInternal         = "Internal server error"
	NoticeMissingFields    = "All fields are required"
)

// Notice is an error whose message is safe to show to the user as-is.
type Notice string

func (n Notice) Error() string { return string(n) }

const minPasswordLength = 8

// ValidatePassword enforces the registration policy: letters and digits
// only, at least eight characters, at least one of each.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return Notice(NoticePasswordPolicy)
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			return Notice(NoticePasswordPolicy)
		}
	}
	if !letter || !digit {
		return Notice(NoticePasswordPolicy)
	}
	return nil
}

// RegistrationForm is what the user fills in before registering.
type RegistrationForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate runs the client-side checks in the order the user sees them.
func (f RegistrationForm) Validate() error {
	if f.Username == "" || f.Email == "" || f.Password == "" || f.ConfirmPassword == "" {
		return Notice(NoticeMissingFields)
	}
	if err := ValidatePassword(f.Password); err != nil {
		return err
	}
	if f.Password != f.ConfirmPassword {
		return Notice(NoticePasswordMismatch)
	}
	return nil
}

// IsNotice reports whether err carries a user-facing notification.
func IsNotice(err error) bool {
	var n Notice
	return errors.As(err, &n)
}
