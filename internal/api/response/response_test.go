package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]string{"id": "g1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "g1", body.Data["id"])
}

func TestError(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, error)
		status int
	}{
		{"bad request", BadRequest, http.StatusBadRequest},
		{"not found", NotFound, http.StatusNotFound},
		{"conflict", Conflict, http.StatusConflict},
		{"internal", InternalError, http.StatusInternalServerError},
		{"unavailable", ServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, errors.New("boom"))

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, http.StatusText(tt.status), body.Error)
			assert.Equal(t, "boom", body.Message)
			assert.Equal(t, tt.status, body.Code)
		})
	}
}

func TestPaginated(t *testing.T) {
	tests := []struct {
		name     string
		pageSize int
		total    int
		pages    int
	}{
		{"exact", 10, 20, 2},
		{"remainder", 10, 21, 3},
		{"empty", 10, 0, 1},
		{"zero page size", 0, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Paginated(w, []int{}, 1, tt.pageSize, tt.total)

			var body PaginatedResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if body.TotalPages != tt.pages {
				t.Errorf("Expected %d pages, got %d", tt.pages, body.TotalPages)
			}
			assert.Equal(t, tt.total, body.TotalCount)
		})
	}
}

func TestAttachment(t *testing.T) {
	w := httptest.NewRecorder()
	Attachment(w, "text/plain; charset=utf-8", "game.txt", []byte("report"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="game.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "report", w.Body.String())
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
