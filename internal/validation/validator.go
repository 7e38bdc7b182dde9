// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/nextstream/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed field, named by its JSON key.
type FieldError struct {
	field, tag, param string
	message           string
}

func (e FieldError) Field() string { return e.field }
func (e FieldError) Tag() string   { return e.tag }
func (e FieldError) Param() string { return e.param }
func (e FieldError) Error() string { return e.message }

// RequestValidationError collects every failed field of one request body.
type RequestValidationError struct {
	fields []FieldError
}

// Errors returns the failures in struct field order.
func (ve *RequestValidationError) Errors() []FieldError { return ve.fields }

func (ve *RequestValidationError) Error() string {
	if len(ve.fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.fields))
	for i, f := range ve.fields {
		msgs[i] = f.message
	}
	return strings.Join(msgs, "; ")
}

// APIError is the VALIDATION_ERROR body the api package writes.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError shapes the failures for a response. One failure keeps its own
// message with field and tag in Details; several are prefixed by field name
// and listed under Details["fields"].
func (ve *RequestValidationError) ToAPIError() *APIError {
	out := &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	switch len(ve.fields) {
	case 0:
	case 1:
		f := ve.fields[0]
		out.Message = f.message
		out.Details = map[string]interface{}{"field": f.field, "tag": f.tag}
	default:
		list := make([]map[string]interface{}, len(ve.fields))
		msgs := make([]string, len(ve.fields))
		for i, f := range ve.fields {
			list[i] = map[string]interface{}{"field": f.field, "tag": f.tag, "message": f.message}
			msgs[i] = f.field + ": " + f.message
		}
		out.Message = strings.Join(msgs, "; ")
		out.Details = map[string]interface{}{"fields": list}
	}
	return out
}

// GetValidator returns the shared validator. The custom tags mediastatus,
// eventtype and username are registered on first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonName)

		custom := map[string]func(string) bool{
			"mediastatus": models.ValidStatus,
			"eventtype":   models.ValidEventType,
			"username":    validUsername,
		}
		for tag, valid := range custom {
			err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return valid(fl.Field().String())
			})
			if err != nil {
				panic(fmt.Sprintf("register %s validator: %v", tag, err))
			}
		}
	})
	return validate
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// validUsername accepts 3 to 32 letters, digits, dots, dashes and
// underscores.
func validUsername(s string) bool {
	if len(s) < 3 || len(s) > 32 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// ValidateStruct validates s and returns nil or the collected failures.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return &RequestValidationError{fields: []FieldError{{field: "unknown", tag: "unknown", message: err.Error()}}}
	}

	out := &RequestValidationError{fields: make([]FieldError, len(fes))}
	for i, fe := range fes {
		out.fields[i] = FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			message: describe(fe),
		}
	}
	return out
}

var fixedMessages = map[string]string{
	"required":    "is required",
	"email":       "must be a valid email address",
	"timezone":    "must be an IANA timezone name",
	"mediastatus": "must be one of: to_watch scheduled watched",
	"eventtype":   "must be one of: movie tv unknown",
	"username":    "must be 3-32 letters, digits, dots, dashes or underscores",
}

var comparisons = map[string]string{
	"oneof": "must be one of:",
	"gte":   "must be greater than or equal to",
	"lte":   "must be less than or equal to",
	"gt":    "must be greater than",
	"lt":    "must be less than",
}

// describe renders fe as "<field> <rule>", for example
// "password must be at least 8 characters".
func describe(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()
	if msg, ok := fixedMessages[tag]; ok {
		return field + " " + msg
	}
	if msg, ok := comparisons[tag]; ok {
		return field + " " + msg + " " + param
	}

	var bound string
	switch tag {
	case "min":
		bound = "at least"
	case "max":
		bound = "at most"
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
	switch fe.Kind() {
	case reflect.String:
		return fmt.Sprintf("%s must be %s %s characters", field, bound, param)
	case reflect.Slice, reflect.Map:
		return fmt.Sprintf("%s must contain %s %s items", field, bound, param)
	default:
		return fmt.Sprintf("%s must be %s %s", field, bound, param)
	}
}
