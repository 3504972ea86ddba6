// Package validation provides input validation middleware for the TON Shield API.
package validation

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 10000

// MaxURLLength is the maximum length for a submitted link
const MaxURLLength = 2048

var (
	// friendlyAddressRegex validates user-friendly TON addresses: 48 chars of
	// base64url starting with a known tag byte pair (EQ/UQ mainnet, kQ/0Q testnet)
	friendlyAddressRegex = regexp.MustCompile(`^(EQ|UQ|kQ|0Q)[A-Za-z0-9_-]{46}$`)
	// rawAddressRegex validates raw workchain:hash addresses
	rawAddressRegex = regexp.MustCompile(`^-?\d+:[a-fA-F0-9]{64}$`)
	// usernameRegex validates Telegram bot/channel usernames
	usernameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)
	// nanotonRegex validates nanoton amounts (non-negative integer string)
	nanotonRegex = regexp.MustCompile(`^\d{1,20}$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidTONAddress checks if a string is a valid TON address in either the
// user-friendly (EQ.../UQ...) or raw (0:hex) form
func IsValidTONAddress(addr string) bool {
	return friendlyAddressRegex.MatchString(addr) || rawAddressRegex.MatchString(addr)
}

// IsValidURL checks that a string is an absolute http(s) URL
func IsValidURL(raw string) bool {
	if raw == "" || len(raw) > MaxURLLength {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// IsValidTelegramUsername checks a Telegram bot or channel username
// (without the leading @)
func IsValidTelegramUsername(name string) bool {
	return usernameRegex.MatchString(strings.TrimPrefix(name, "@"))
}

// IsValidNanoton checks that a string is a plausible nanoton amount:
// a plain non-negative integer with no sign, decimals, or exponent
func IsValidNanoton(amount string) bool {
	return nanotonRegex.MatchString(amount)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// SanitizeAddress trims a TON address. Friendly addresses are case-sensitive
// base64url so no case folding is applied
func SanitizeAddress(addr string) string {
	return strings.TrimSpace(addr)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidAddress checks if a field is a valid TON address
func ValidAddress(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !IsValidTONAddress(value) {
			return &ValidationError{Field: field, Message: "must be a valid TON address (EQ.../UQ... or raw 0:hex)"}
		}
		return nil
	}
}

// ValidURL checks if a field is an absolute http(s) URL
func ValidURL(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidURL(value) {
			return &ValidationError{Field: field, Message: "must be an absolute http(s) URL"}
		}
		return nil
	}
}

// ValidNanotonAmount checks if a field is a valid nanoton amount
func ValidNanotonAmount(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidNanoton(value) {
			return &ValidationError{Field: field, Message: "must be a non-negative integer nanoton amount"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// AddressParamMiddleware validates the :address URL parameter on routes that use it.
// Apply to route groups that include :address params to reject malformed addresses early.
func AddressParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := c.Param("address")
		if addr != "" && !IsValidTONAddress(addr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_address",
				"message": "address must be a valid TON address (EQ.../UQ... or raw workchain:hex)",
			})
			return
		}
		c.Next()
	}
}
