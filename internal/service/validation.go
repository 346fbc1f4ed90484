package service

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	minDescription    = 50
	passwordSpecials  = "@#$/%^&+=!"
)

var (
	usernamePattern    = regexp.MustCompile(`^[A-Za-z\s]+$`)
	emailPattern       = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w{2,4}$`)
	descriptionPattern = regexp.MustCompile(`^[A-Za-z0-9\s.,'’\-]+$`)
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return invalid("username is required")
	}
	if !usernamePattern.MatchString(username) {
		return invalid("username may contain only letters and spaces")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return invalid("invalid email address")
	}
	return nil
}

// validatePassword requires a lower-case letter, an upper-case letter, a
// digit and one of passwordSpecials.
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid("password must be at least 8 characters")
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return invalid("password must include upper and lower case letters, a digit and one of " + passwordSpecials)
	}
	return nil
}

func validateDescription(description string) error {
	if !descriptionPattern.MatchString(description) {
		return invalid("description may contain only letters, digits, spaces and basic punctuation")
	}
	if len(strings.Fields(description)) < minDescription {
		return invalid("description must be at least 50 words")
	}
	return nil
}

// imageContentType returns the MIME type for an allowed image file name.
func imageContentType(filename string) (string, error) {
	ct, ok := imageTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", invalid("image must be a .jpg, .jpeg or .png file")
	}
	return ct, nil
}
