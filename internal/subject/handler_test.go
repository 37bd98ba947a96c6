package subject_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gradebook/common/logger"
	commonmetrics "gradebook/common/metrics"
	"gradebook/internal/metrics"
	"gradebook/internal/subject"
	"gradebook/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	db := testdb.SQLite(t)
	service := subject.NewService(subject.NewRepository(db, commonmetrics.NewMock()))
	router := chi.NewRouter()
	subject.NewHandler(service, logger.Discard(), metrics.NewMock()).RegisterRoutes(router)
	return router
}

func request(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func create(t *testing.T, router http.Handler, name string) subject.Subject {
	t.Helper()
	w := request(t, router, http.MethodPost, "/subjects", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var s subject.Subject
	require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
	return s
}

func TestCreateSubject(t *testing.T) {
	router := setupRouter(t)

	s := create(t, router, "  Applied   Mathematics ")
	assert.NotZero(t, s.ID)
	assert.Equal(t, "Applied Mathematics", s.Name)

	w := request(t, router, http.MethodPost, "/subjects", map[string]string{"name": "applied mathematics"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = request(t, router, http.MethodPost, "/subjects", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAllSubjects(t *testing.T) {
	router := setupRouter(t)
	create(t, router, "Physics")
	create(t, router, "Chemistry")
	create(t, router, "Physical Education")

	w := request(t, router, http.MethodGet, "/subjects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []subject.Subject
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
	require.Len(t, all, 3)
	assert.Equal(t, "Chemistry", all[0].Name)

	w = request(t, router, http.MethodGet, "/subjects?q=PHYS", nil)
	var matched []subject.Subject
	require.NoError(t, json.NewDecoder(w.Body).Decode(&matched))
	assert.Len(t, matched, 2)
}

func TestAddDefaults_Idempotent(t *testing.T) {
	router := setupRouter(t)
	create(t, router, "physics")

	var first struct {
		Count   int               `json:"count"`
		Created []subject.Subject `json:"created"`
	}
	w := request(t, router, http.MethodPost, "/subjects/defaults", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&first))
	assert.Equal(t, len(subject.Defaults)-1, first.Count)

	var second struct {
		Count int `json:"count"`
	}
	w = request(t, router, http.MethodPost, "/subjects/defaults", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&second))
	assert.Zero(t, second.Count)
}

func TestUpdateAndDeleteSubject(t *testing.T) {
	router := setupRouter(t)
	physics := create(t, router, "Physics")
	create(t, router, "Chemistry")

	w := request(t, router, http.MethodPut, "/subjects/1", map[string]string{"name": "Advanced Physics"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated subject.Subject
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, physics.ID, updated.ID)
	assert.Equal(t, "Advanced Physics", updated.Name)

	// renaming to its own name in another case is allowed
	w = request(t, router, http.MethodPut, "/subjects/1", map[string]string{"name": "advanced physics"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(t, router, http.MethodPut, "/subjects/1", map[string]string{"name": "CHEMISTRY"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = request(t, router, http.MethodDelete, "/subjects/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = request(t, router, http.MethodGet, "/subjects/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportSubjectsCSV(t *testing.T) {
	router := setupRouter(t)
	create(t, router, "Physics")

	w := request(t, router, http.MethodGet, "/export/subjects.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id,name\n1,Physics\n", w.Body.String())
}
