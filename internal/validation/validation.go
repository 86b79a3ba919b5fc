package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateRequired valida que un campo no esté vacío
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(fieldName + " is required")
	}
	return nil
}

// ValidateMinLength valida la longitud mínima de un string
func ValidateMinLength(value string, minLength int, fieldName string) error {
	if utf8.RuneCountInString(value) < minLength {
		return fmt.Errorf("%s must be at least %d characters long", fieldName, minLength)
	}
	return nil
}

// ValidateMaxLength valida la longitud máxima de un string
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return fmt.Errorf("%s must be at most %d characters long", fieldName, maxLength)
	}
	return nil
}

// ValidateUUID valida que un string sea un UUID válido
func ValidateUUID(value, fieldName string) error {
	if _, err := uuid.Parse(value); err != nil {
		return errors.New(fieldName + " must be a valid UUID")
	}
	return nil
}

// ValidateFutureDate valida que una fecha no esté en el pasado
func ValidateFutureDate(date time.Time, fieldName string) error {
	if date.Before(time.Now()) {
		return errors.New(fieldName + " cannot be in the past")
	}
	return nil
}

// ValidateAttendeeBounds valida los límites de asistentes de un evento
func ValidateAttendeeBounds(minAttendees, maxAttendees int) error {
	if minAttendees < 1 {
		return errors.New("min_attendees must be at least 1")
	}
	if maxAttendees < minAttendees {
		return errors.New("max_attendees must be greater than or equal to min_attendees")
	}
	return nil
}

// EventValidation contiene validaciones específicas para eventos
type EventValidation struct{}

// ValidateEventName valida el nombre de un evento
func (v EventValidation) ValidateEventName(name string) error {
	if err := ValidateRequired(name, "name"); err != nil {
		return err
	}
	if err := ValidateMinLength(name, 3, "name"); err != nil {
		return err
	}
	if err := ValidateMaxLength(name, 100, "name"); err != nil {
		return err
	}
	return nil
}

// ValidateEventDescription valida la descripción de un evento
func (v EventValidation) ValidateEventDescription(description string) error {
	return ValidateMaxLength(description, 1000, "description")
}
