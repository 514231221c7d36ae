package apperror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/moviebench/pkg/logger"
)

func runHandler(t *testing.T, method string, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/get_movie", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(logger.Discard())(err, c)

	if method == http.MethodHead {
		return rec, nil
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return rec, resp["error"].(map[string]any)
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	rec, errObj := runHandler(t, http.MethodGet, NewNotFound("movie", "42"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if errObj["code"] != "not_found" {
		t.Errorf("Code = %v, want not_found", errObj["code"])
	}
	if errObj["message"] != "movie '42' not found" {
		t.Errorf("Message = %v", errObj["message"])
	}
}

func TestHTTPErrorHandler_EchoError(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusNotFound, "not_found"},
		{http.StatusBadRequest, "bad_request"},
		{http.StatusMethodNotAllowed, "method_not_allowed"},
		{http.StatusConflict, "conflict"},
		{http.StatusServiceUnavailable, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rec, errObj := runHandler(t, http.MethodGet, echo.NewHTTPError(tt.status, "nope"))
			if rec.Code != tt.status {
				t.Errorf("Status = %d, want %d", rec.Code, tt.status)
			}
			if errObj["code"] != tt.wantCode {
				t.Errorf("Code = %v, want %s", errObj["code"], tt.wantCode)
			}
			if errObj["message"] != "nope" {
				t.Errorf("Message = %v, want nope", errObj["message"])
			}
		})
	}
}

func TestHTTPErrorHandler_UnknownError(t *testing.T) {
	rec, errObj := runHandler(t, http.MethodPost, errors.New("driver exploded"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", rec.Code)
	}
	if errObj["message"] != "An internal error occurred" {
		t.Errorf("internal details leaked: %v", errObj["message"])
	}
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	rec, _ := runHandler(t, http.MethodHead, NewBadRequest("x"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD response should have no body, got %q", rec.Body.String())
	}
}
