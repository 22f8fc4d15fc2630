package utils

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 8
	// MaxPasswordLength guards bcrypt's 72-byte input limit
	MaxPasswordLength = 72
	// MinPasswordEntropy is the Shannon entropy floor in bits per character
	MinPasswordEntropy = 2.5
)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// PasswordProblems lists every policy rule the password breaks.
// An empty result means the password is acceptable.
func PasswordProblems(password string) []string {
	var problems []string

	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		problems = append(problems, "must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		problems = append(problems, "must be at most 72 bytes")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}
	if !hasUpper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !hasNumber {
		problems = append(problems, "must contain a digit")
	}

	if n > 0 && ShannonEntropy(password) < MinPasswordEntropy {
		problems = append(problems, "is too repetitive")
	}

	return problems
}

// ValidatePassword reports whether the password satisfies the policy
func ValidatePassword(password string) bool {
	return len(PasswordProblems(password)) == 0
}

// ShannonEntropy returns the per-character Shannon entropy of s in bits
func ShannonEntropy(s string) float64 {
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	if total == 0 {
		return 0
	}

	var entropy float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
