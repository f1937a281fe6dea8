package repository

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when email or username is already taken
	ErrUserExists = errors.New("user already exists")
)
