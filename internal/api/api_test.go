package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RespondJSON(w, http.StatusCreated, map[string]int{"id": 42})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	// json.Encoder appends a newline
	if got := w.Body.String(); got != "{\"id\":42}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRespondValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondValidationError(w, map[string]string{"username": "is required"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != "validation_error" || resp.Details["username"] != "is required" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty", "", "request body is empty"},
		{"malformed", `{invalid}`, "malformed JSON"},
		{"type mismatch", `{"limit":"ten"}`, "invalid value"},
		{"unknown field", `{"limit":1,"extra":true}`, "unknown field"},
		{"oversized", `{"name":"` + strings.Repeat("x", MaxBodySize+1) + `"}`, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst struct {
				Name  string `json:"name"`
				Limit int    `json:"limit"`
			}
			err := DecodeJSON(newRequest(tt.body), &dst)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	type loginBody struct {
		Username string `json:"username" validate:"required"`
	}

	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
	}{
		{"valid", `{"username":"admin"}`, true, http.StatusOK},
		{"bad json", `{`, false, http.StatusBadRequest},
		{"missing field", `{}`, false, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			var dst loginBody
			ok := DecodeAndValidate(w, newRequest(tt.body), &dst)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query       string
		wantPage    int
		wantPerPage int
	}{
		{"", 1, 20},
		{"page=3&per_page=25", 3, 25},
		{"per_page=500", 1, 100},
		{"page=-1&per_page=0", 1, 20},
		{"page=abc", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/alerts?"+tt.query, nil)
			p := ParsePagination(r)
			if p.Page != tt.wantPage || p.PerPage != tt.wantPerPage {
				t.Errorf("got %+v, want page=%d per_page=%d", p, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestPaginationParams_OffsetAndTotalPages(t *testing.T) {
	p := PaginationParams{Page: 3, PerPage: 20}
	if p.Offset() != 40 {
		t.Errorf("offset = %d, want 40", p.Offset())
	}

	tests := map[int64]int{0: 0, 1: 1, 20: 1, 21: 2, 100: 5}
	for total, want := range tests {
		if got := p.TotalPages(total); got != want {
			t.Errorf("TotalPages(%d) = %d, want %d", total, got, want)
		}
	}
}

func TestNewPage(t *testing.T) {
	page := NewPage[string](nil, 0, PaginationParams{Page: 1, PerPage: 20})
	if page.Items == nil {
		t.Error("items should encode as an empty array")
	}

	data, _ := json.Marshal(page)
	if !strings.Contains(string(data), `"items":[]`) {
		t.Errorf("unexpected JSON %s", data)
	}
}

func newRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}
