package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-elhub-stats/internal/pipeline"
	"go-elhub-stats/internal/selection"
)

func TestPathParam(t *testing.T) {
	tests := []struct {
		path   string
		prefix string
		suffix string
		want   string
		ok     bool
	}{
		{"/api/v1/sessions/abc", "/sessions/", "", "abc", true},
		{"/api/v1/sessions/abc/chart", "/sessions/", "/chart", "abc", true},
		{"/api/v1/sessions/abc/chart", "/sessions/", "", "", false},
		{"/api/v1/sessions//chart", "/sessions/", "/chart", "", false},
		{"/api/v1/sessions/", "/sessions/", "", "", false},
		{"/api/v1/runs/r1", "/sessions/", "", "", false},
		{"/api/v1/sessions/chart", "/sessions/", "/chart", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path+tt.suffix, func(t *testing.T) {
			got, ok := pathParam(tt.path, tt.prefix, tt.suffix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExportFormat(t *testing.T) {
	tests := map[string]struct {
		want string
		ok   bool
	}{
		"":     {"csv", true},
		"CSV":  {"csv", true},
		"xlsx": {"xlsx", true},
		"json": {"json", true},
		"pdf":  {"pdf", false},
	}

	for query, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/x?format="+query, nil)
		got, ok := exportFormat(r)
		assert.Equal(t, tt.ok, ok, query)
		assert.Equal(t, tt.want, got, query)
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&selection.EmptySelectionError{Missing: []string{"status"}}, http.StatusUnprocessableEntity},
		{fmt.Errorf("chart: %w", &selection.EmptySelectionError{Missing: []string{"status"}}), http.StatusUnprocessableEntity},
		{selection.ErrSessionNotFound, http.StatusNotFound},
		{&pipeline.PageError{Page: pipeline.PageInstallations, Err: errors.New("missing")}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
	}
}
