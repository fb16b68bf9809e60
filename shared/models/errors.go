package models

import "errors"

var (
	ErrConflict     = errors.New("already exists")
	ErrNotFound     = errors.New("not found")
	ErrInvalidReset = errors.New("verification code expired or invalid")
	ErrInvalidInput = errors.New("invalid input")
)
