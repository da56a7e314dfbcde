// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalid является базовой ошибкой некорректных входных данных.
var ErrInvalid = errors.New("invalid input")

// FieldError описывает некорректное значение конкретного поля запроса.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

// objectIDLen задаёт длину идентификатора в шестнадцатеричной записи.
const objectIDLen = 24

// ParseObjectID приводит идентификатор записи к каноническому виду.
//
// Принимаются два формата: 24-символьный hex-идентификатор и устаревший
// числовой идентификатор, который дополняется нулями слева до 24 символов
// ("101" -> "000000000000000000000101").
func ParseObjectID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &FieldError{Field: "id", Reason: "is required"}
	}

	if isDigits(s) {
		if len(s) > objectIDLen {
			return "", &FieldError{Field: "id", Reason: "invalid id format"}
		}
		s = strings.Repeat("0", objectIDLen-len(s)) + s
	}

	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return "", &FieldError{Field: "id", Reason: "invalid id format"}
	}

	return oid.Hex(), nil
}

// NewObjectID возвращает новый уникальный идентификатор записи.
func NewObjectID() string {
	return primitive.NewObjectID().Hex()
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
