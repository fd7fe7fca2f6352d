package http_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/samirrijal/poonyc/api"
)

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI document: %v", err)
	}
	return doc
}

func TestOpenAPISpec(t *testing.T) {
	doc := loadOpenAPI(t)
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI document validation failed: %v", err)
	}

	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/restrooms",
		"/v1/restrooms/{id}",
		"/v1/restrooms/{id}/photo",
		"/v1/pins",
		"/v1/geocode",
		"/v1/sessions",
		"/v1/sessions/{id}",
		"/v1/sessions/{id}/permission",
		"/v1/sessions/{id}/location",
		"/v1/sessions/{id}/select",
		"/v1/sessions/{id}/route/toggle",
		"/v1/sessions/{id}/region",
		"/v1/sessions/{id}/search",
		"/v1/sessions/{id}/recenter",
		"/v1/sessions/{id}/reload",
		"/v1/sessions/{id}/visible",
		"/v1/sessions/{id}/nearest",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := doc.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found", path)
		}
	}

	expectedSchemas := []string{
		"GeoPoint", "Region", "Restroom", "NewRestroom", "Pin", "LiveLocation",
		"RouteOverlay", "MapViewState", "Advisory", "ScreenView", "Session",
		"Pagination", "APIError",
	}
	for _, name := range expectedSchemas {
		if doc.Components.Schemas[name] == nil {
			t.Errorf("expected schema %s not found", name)
		}
	}
}

func TestOpenAPIInfo(t *testing.T) {
	doc := loadOpenAPI(t)
	if doc.Info.Title != "poonyc API" {
		t.Errorf("expected title 'poonyc API', got %q", doc.Info.Title)
	}
	if doc.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", doc.Info.Version)
	}
	if len(doc.Servers) == 0 {
		t.Error("expected at least one server")
	}
}
