package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// EmailRegex validates email format
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// AssetNameRegex matches the asset names served by the mock stream
	AssetNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)
)

// ValidateEmail validates email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long (max 254 characters)")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword validates password
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	return ValidateStringLength(password, 6, 128, "password")
}

// ValidateBaseURL validates the base URL of the streaming server.
// Only absolute http(s) URLs with a host are accepted.
func ValidateBaseURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateAssetName validates a manifest or segment file name taken from a request path
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("asset name is required")
	}
	if len(name) > 100 {
		return fmt.Errorf("asset name is too long (max 100 characters)")
	}
	if !AssetNameRegex.MatchString(name) {
		return fmt.Errorf("invalid asset name format")
	}
	return nil
}

// ValidateSegmentIndex validates a 1-based segment index against the segment count
func ValidateSegmentIndex(index, count int) error {
	if index < 1 || index > count {
		return fmt.Errorf("segment index %d out of range [1, %d]", index, count)
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
