package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gradebook/internal/app"
	"gradebook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:      "test",
		Server:   config.ServerConfig{Port: "0"},
		GRPC:     config.GRPCConfig{Port: "0"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		Grading:  config.GradingConfig{PassThreshold: 40},
		Events:   config.EventsConfig{Driver: "none"},
		Log:      config.LogConfig{Level: "error", Format: "json"},
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestApp_EndToEnd(t *testing.T) {
	ctx := context.Background()
	application, err := app.NewWithConfig(ctx, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown(ctx) })

	h := application.Handler()

	w := do(t, h, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/students", map[string]string{
		"name": "Asha Rao", "class": "10", "section": "a", "date_of_birth": "2010-03-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var student struct {
		ID      int    `json:"id"`
		Section string `json:"section"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &student))
	assert.Equal(t, "A", student.Section)

	subjectIDs := map[string]int{}
	for _, name := range []string{"Math", "Physics"} {
		w = do(t, h, http.MethodPost, "/api/subjects", map[string]string{"name": name})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var s struct {
			ID int `json:"id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
		subjectIDs[name] = s.ID
	}

	for name, obtained := range map[string]float64{"Math": 90, "Physics": 40} {
		w = do(t, h, http.MethodPost, "/api/marks", map[string]any{
			"student_id":      student.ID,
			"subject_id":      subjectIDs[name],
			"marks_obtained":  obtained,
			"assessment_date": "2024-05-01",
			"assessment_type": "Final",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/students/1/report-card", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var card struct {
		Summary struct {
			OverallPercentage float64 `json:"overall_percentage"`
			OverallGrade      string  `json:"overall_grade"`
		} `json:"summary"`
		Tier string `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
	assert.Equal(t, 65.0, card.Summary.OverallPercentage)
	assert.Equal(t, "B", card.Summary.OverallGrade)
	assert.Equal(t, "Good", card.Tier)

	w = do(t, h, http.MethodGet, "/api/classes/10/report.csv?section=A", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Asha Rao")

	w = do(t, h, http.MethodGet, "/api/analytics/top-performers?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/students/99/report-card", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewWithConfig_InvalidDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "mysql"

	_, err := app.NewWithConfig(context.Background(), cfg)
	assert.Error(t, err)
}
