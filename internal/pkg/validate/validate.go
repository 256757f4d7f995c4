package validate

import (
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Email reports whether s is a syntactically valid email address.
func Email(s string) bool {
	return v.Var(s, "required,email") == nil
}

// Sanitize trims whitespace and HTML-escapes free-text input before it is
// persisted or rendered into an email body. Input is unescaped first so the
// result is idempotent: stored values shown on the public form and submitted
// back unchanged normalize to the same string instead of growing entities.
func Sanitize(s string) string {
	return html.EscapeString(html.UnescapeString(strings.TrimSpace(s)))
}

// SanitizePtr sanitizes an optional field, mapping empty input to nil.
func SanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	clean := Sanitize(*s)
	if clean == "" {
		return nil
	}
	return &clean
}
