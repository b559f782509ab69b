package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad label") }, http.StatusBadRequest, "bad label"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "no such label") }, http.StatusNotFound, "no such label"},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "busy") }, http.StatusConflict, "busy"},
		{"unprocessable", func(w http.ResponseWriter) { UnprocessableEntity(w, "too short") }, http.StatusUnprocessableEntity, "too short"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "boom") }, http.StatusInternalServerError, "boom"},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.msg, resp["error"])
		})
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusAccepted, map[string]int{"chunks": 3})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"chunks":3}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteJSONOK(rec, []string{"a"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["a"]`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		Label string `json:"label"`
	}

	var b body
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"label":"x"}`))
	require.NoError(t, DecodeJSON(req, &b))
	assert.Equal(t, "x", b.Label)

	for _, in := range []string{`{"label":"x","other":1}`, `{"label":"x"}{}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(in))
		assert.Error(t, DecodeJSON(req, &b), in)
	}
}
