package service

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"nestbook/internal/credential"
)

// Special characters a password must draw at least one of.
const passwordSpecials = `!@#$^&*_":?`

var lettersAndSpaces = regexp.MustCompile(`^[a-zA-Z\s]+$`)

// rule is one validator tag paired with the message reported when it fails.
type rule struct {
	tag     string
	message string
}

var (
	firstNameRules = []rule{
		{"required", "First name is required"},
		{"min=2", "First name must be at least 2 chars"},
		{"alphaspace", "First name must contain only letters"},
	}
	lastNameRules = []rule{
		{"omitempty,alphaspace", "Last name must contain only letters"},
	}
	emailRules = []rule{
		{"email", "Invalid email"},
	}
	passwordRules = []rule{
		{"min=8", "Password must be at least 8 chars"},
		{"containsany=abcdefghijklmnopqrstuvwxyz", "Password must contain a lowercase letter"},
		{"containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ", "Password must contain an uppercase letter"},
		{"containsany=" + passwordSpecials, "Password must contain a special character"},
		{"hashable", "Password must be at most 72 bytes"},
	}
	userTypeRules = []rule{
		{"required", "User type required"},
		{"oneof=guest host", "Invalid user type"},
	}
	termsRules = []rule{
		{"required", "Terms must be accepted"},
	}
)

const confirmMismatch = "Passwords do not match"

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("alphaspace", func(fl validator.FieldLevel) bool {
		return lettersAndSpaces.MatchString(fl.Field().String())
	})
	// bcrypt limits bytes, not characters
	_ = v.RegisterValidation("hashable", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= credential.MaxPasswordBytes
	})
	return v
}

// checker runs rule chains and collects the failure messages in order.
type checker struct {
	v        *validator.Validate
	messages []string
}

func (c *checker) field(value any, rules []rule) {
	for _, r := range rules {
		if err := c.v.Var(value, r.tag); err != nil {
			c.messages = append(c.messages, r.message)
		}
	}
}

func (c *checker) equal(value, other string, message string) {
	if err := c.v.VarWithValue(value, other, "eqfield"); err != nil {
		c.messages = append(c.messages, message)
	}
}

func (c *checker) err() error {
	if len(c.messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: c.messages}
}

// normalizeEmail trims and lowercases an address so lookups and the unique index agree.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalize trims every text field of the signup form.
func (in SignupInput) normalize() SignupInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.ConfirmPassword = strings.TrimSpace(in.ConfirmPassword)
	in.UserType = strings.TrimSpace(in.UserType)
	return in
}

func (s *authService) validateSignup(in SignupInput) error {
	c := &checker{v: s.validate}
	c.field(in.FirstName, firstNameRules)
	c.field(in.LastName, lastNameRules)
	c.field(in.Email, emailRules)
	c.field(in.Password, passwordRules)
	c.equal(in.ConfirmPassword, in.Password, confirmMismatch)
	c.field(in.UserType, userTypeRules)
	c.field(in.TermsAccepted, termsRules)
	return c.err()
}

func (s *authService) validatePassword(password, confirm string) error {
	c := &checker{v: s.validate}
	c.field(password, passwordRules)
	c.equal(confirm, password, confirmMismatch)
	return c.err()
}
