package domain

import "errors"

var (
	ErrUnauthorized  = errors.New("resource belongs to another user")
	ErrHabitConflict = errors.New("habit version conflict")
)
