package http

import (
	"regexp"

	goValidator "github.com/go-playground/validator/v10"
)

var symbolIDRegex = regexp.MustCompile(`^\s*[A-Za-z0-9][A-Za-z0-9._-]{0,19}\s*$`)

// NewValidator returns a validator with the symbol_id tag registered.
func NewValidator() *goValidator.Validate {
	v := goValidator.New()
	_ = v.RegisterValidation("symbol_id", func(fl goValidator.FieldLevel) bool {
		return symbolIDRegex.MatchString(fl.Field().String())
	})
	return v
}
