// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package docs

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/swaggo/swag"
)

func TestSwaggerDocRenders(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}

	var doc struct {
		Swagger  string                                `json:"swagger"`
		BasePath string                                `json:"basePath"`
		Schemes  []string                              `json:"schemes"`
		Info     struct{ Title string }                `json:"info"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("rendered doc is not JSON: %v", err)
	}
	if doc.Swagger != "2.0" || doc.BasePath != "/api" || doc.Info.Title != "NextStream API" {
		t.Errorf("unexpected header: %+v", doc)
	}
	if len(doc.Schemes) != 2 {
		t.Errorf("schemes = %v", doc.Schemes)
	}

	for path, method := range map[string]string{
		"/auth/login":                                   "post",
		"/calendar/{userId}/events":                     "post",
		"/messages/{userId}/since/{seq}":                "get",
		"/tmdb/{mediaType}/{id}/trailer":                "get",
		"/recommendations/{userId}":                     "get",
		"/calendar/{userId}/shared-events/{id}/respond": "put",
	} {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("missing %s %s", method, path)
		}
	}
}
