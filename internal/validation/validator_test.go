// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

type mediaRequest struct {
	Status    string   `json:"status" validate:"required,mediastatus"`
	EventType string   `json:"eventType" validate:"omitempty,eventtype"`
	Tags      []string `json:"tags" validate:"max=2"`
	Limit     int      `json:"limit" validate:"min=1,max=200"`
}

func validRegister() registerRequest {
	return registerRequest{
		Name:     "Alice",
		Username: "alice_01",
		Email:    "alice@example.com",
		Password: "correct horse",
		Timezone: "Europe/London",
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	req := validRegister()
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := mediaRequest{Status: "to_watch", EventType: "tv", Limit: 10}
	if err := ValidateStruct(&m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *registerRequest)
		field  string
		msg    string
	}{
		{"missing name", func(r *registerRequest) { r.Name = "" }, "name", "name is required"},
		{"short username", func(r *registerRequest) { r.Username = "al" }, "username",
			"username must be 3-32 letters, digits, dots, dashes or underscores"},
		{"username with space", func(r *registerRequest) { r.Username = "al ice" }, "username", ""},
		{"bad email", func(r *registerRequest) { r.Email = "alice" }, "email", "email must be a valid email address"},
		{"short password", func(r *registerRequest) { r.Password = "short" }, "password",
			"password must be at least 8 characters"},
		{"unknown timezone", func(r *registerRequest) { r.Timezone = "Mars/Base" }, "timezone",
			"timezone must be an IANA timezone name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegister()
			tt.mutate(&req)
			verr := ValidateStruct(&req)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("errors = %d, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.field {
				t.Errorf("field = %q, want %q", errs[0].Field(), tt.field)
			}
			if tt.msg != "" && errs[0].Error() != tt.msg {
				t.Errorf("message = %q, want %q", errs[0].Error(), tt.msg)
			}
		})
	}
}

func TestValidateStruct_CustomTags(t *testing.T) {
	tests := []struct {
		name  string
		req   mediaRequest
		field string
		tag   string
	}{
		{"bad status", mediaRequest{Status: "watching", Limit: 1}, "status", "mediastatus"},
		{"bad event type", mediaRequest{Status: "watched", EventType: "book", Limit: 1}, "eventType", "eventtype"},
		{"too many tags", mediaRequest{Status: "watched", Tags: []string{"a", "b", "c"}, Limit: 1}, "tags", "max"},
		{"limit too large", mediaRequest{Status: "watched", Limit: 500}, "limit", "max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.req)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			e := verr.Errors()[0]
			if e.Field() != tt.field || e.Tag() != tt.tag {
				t.Errorf("got %s/%s, want %s/%s", e.Field(), e.Tag(), tt.field, tt.tag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	req := validRegister()
	req.Email = ""
	single := ValidateStruct(&req).ToAPIError()
	if single.Code != "VALIDATION_ERROR" || single.Message != "email is required" {
		t.Errorf("single = %+v", single)
	}
	if single.Details["field"] != "email" {
		t.Errorf("details = %v", single.Details)
	}

	req.Name = ""
	multi := ValidateStruct(&req).ToAPIError()
	if !strings.Contains(multi.Message, "name: name is required") || !strings.Contains(multi.Message, "email: email is required") {
		t.Errorf("multi message = %q", multi.Message)
	}
	fields, ok := multi.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("fields = %v", multi.Details["fields"])
	}
}

func TestSliceMessages(t *testing.T) {
	m := mediaRequest{Status: "watched", Tags: []string{"a", "b", "c"}, Limit: 1}
	verr := ValidateStruct(&m)
	if verr == nil || verr.Errors()[0].Error() != "tags must contain at most 2 items" {
		t.Errorf("got %v", verr)
	}
}
