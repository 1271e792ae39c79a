package hitasapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestSearchBuildsQuery(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/property-managers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{
			"contents": []map[string]any{
				{"id": "pm-1", "name": "Isännöinti Oy"},
				{"id": "pm-2", "name": "Isännöitsijätoimisto"},
			},
			"page": map[string]any{"size": 2, "total_items": 7},
		})
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Token: "secret"})
	page, err := client.Search(context.Background(), model.SearchFilter{
		Resource:   "property-managers",
		Query:      "is",
		QueryParam: "name",
		Params:     map[string]string{"active": "true"},
		Limit:      5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "active=true&limit=5&name=is" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if page.TotalItems != 7 || page.Size != 2 || page.Contents[1].ID() != "pm-2" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestSaveRejectionCarriesServerError(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Bad request",
			"fields": []map[string]any{
				{"field": "name.display", "message": "This field is mandatory and cannot be blank."},
			},
		})
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL})
	_, err := client.Save(context.Background(), "housing-companies", "hc-1", map[string]any{"name": map[string]any{}})
	if err == nil {
		t.Fatalf("expected rejection")
	}
	if method != http.MethodPut {
		t.Fatalf("expected PUT for existing id, got %s", method)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	serverErr, ok := ServerError(err)
	if !ok {
		t.Fatalf("expected *model.ServerError in chain")
	}
	want := model.ServerErrorData{
		Message: "Bad request",
		Status:  http.StatusBadRequest,
		Fields:  []model.ServerFieldError{{Field: "name.display", Message: "This field is mandatory and cannot be blank."}},
	}
	if diff := cmp.Diff(want, serverErr.Data); diff != "" {
		t.Fatalf("server error mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveCreatesWithPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/owners" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = "owner-1"
		writeJSON(w, http.StatusCreated, body)
	}))
	defer srv.Close()

	out, err := New(Config{BaseURL: srv.URL}).Save(context.Background(), "owners", "", map[string]any{"name": "Matti"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if out["id"] != "owner-1" || out["name"] != "Matti" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "missing"})
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Get(context.Background(), "owners", "nope")
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Breaker: BreakerConfig{MaxFailures: 1}})
	for i := 0; i < 3; i++ {
		_, err := client.Search(context.Background(), model.SearchFilter{Resource: "owners", Query: "ma"})
		if !goerrors.IsCategory(err, goerrors.CategoryExternal) {
			t.Fatalf("call %d: expected external category, got %v", i, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected breaker to stop after one call, got %d", calls.Load())
	}
	if client.HealthCheck(context.Background()) == nil {
		t.Fatalf("expected health check to report the open breaker")
	}
}
