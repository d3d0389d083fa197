package services

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound wird geliefert, wenn kein Rezept mit der ID existiert.
	ErrNotFound = errors.New("recipe not found")
	// ErrConflict wird bei einer Verletzung eines Unique-Constraints geliefert.
	ErrConflict = errors.New("recipe already exists")
)

// ValidationError sammelt die Regeln, die eine Eingabe verletzt hat.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range validatedFields {
		if msg, ok := e.Fields[field]; ok {
			parts = append(parts, field+": "+msg)
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// feste Reihenfolge für Error()
var validatedFields = []string{"name", "cook_time", "description", "ingredients"}
