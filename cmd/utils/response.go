package utils

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate is the shared validator instance for request DTOs. Field errors
// are reported under the json tag name.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// WriteJSON writes v as a bare JSON resource.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes the standard success envelope.
func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, map[string]interface{}{
		"result":  "success",
		"message": message,
		"data":    data,
	})
}

// WriteError writes the standard error envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]interface{}{
		"result":  "error",
		"message": message,
	})
}

// WriteFieldErrors writes a 422 with a field to message map.
func WriteFieldErrors(w http.ResponseWriter, message string, fields map[string]string) {
	WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"result":  "error",
		"message": message,
		"errors":  fields,
	})
}

// WriteValidationError maps validator.v10 errors into the field-error shape.
func WriteValidationError(w http.ResponseWriter, err error) {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid input")
		return
	}
	fields := make(map[string]string)
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	WriteFieldErrors(w, "Validation failed", fields)
}

// IsUniqueViolation reports whether err is a unique-constraint violation from
// the database. Message sniffing covers both Postgres and SQLite wording.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
