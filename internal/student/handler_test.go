package student_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gradebook/common/logger"
	commonmetrics "gradebook/common/metrics"
	"gradebook/internal/metrics"
	"gradebook/internal/store"
	"gradebook/internal/student"
	"gradebook/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func dob(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestStudentHandler_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.Migrate(t)

	// Create handler ONCE and reuse across all subtests
	repo := student.NewRepository(pgContainer.DB, commonmetrics.NewMock())
	service := student.NewService(repo)
	handler := student.NewHandler(service, logger.Discard(), metrics.NewMock())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	seed := func(t *testing.T, students ...*student.Student) {
		t.Helper()
		for _, s := range students {
			_, err := pgContainer.DB.NewInsert().Model(s).Exec(context.Background())
			require.NoError(t, err)
		}
	}

	t.Run("CreateStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, store.TableNames()...)

		w := request(t, router, http.MethodPost, "/students", map[string]any{
			"name":          "  Asha   Rao ",
			"class":         "10",
			"section":       "b",
			"date_of_birth": "2010-03-15",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var response student.Student
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.NotZero(t, response.ID)
		assert.Equal(t, "Asha Rao", response.Name)
		assert.Equal(t, "B", response.Section)
		assert.NotZero(t, response.CreatedAt)
	})

	t.Run("CreateStudent_Invalid", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, store.TableNames()...)

		cases := map[string]map[string]any{
			"digits in name": {"name": "R2D2", "class": "10", "section": "A", "date_of_birth": "2010-03-15"},
			"class too long": {"name": "Asha", "class": "ABCDEFGHIJK", "section": "A", "date_of_birth": "2010-03-15"},
			"too old":        {"name": "Asha", "class": "10", "section": "A", "date_of_birth": "1980-01-01"},
			"bad date":       {"name": "Asha", "class": "10", "section": "A", "date_of_birth": "15/03/2010"},
			"unknown field":  {"name": "Asha", "class": "10", "section": "A", "date_of_birth": "2010-03-15", "email": "x"},
		}
		for name, payload := range cases {
			w := request(t, router, http.MethodPost, "/students", payload)
			assert.Equal(t, http.StatusBadRequest, w.Code, name)
		}
	})

	t.Run("GetStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, store.TableNames()...)
		seed(t, &student.Student{Name: "Jane Doe", Class: "9", Section: "A", DateOfBirth: dob("2011-06-01")})

		w := request(t, router, http.MethodGet, "/students/1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var response student.Student
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Jane Doe", response.Name)
		assert.Equal(t, "9", response.Class)
	})

	t.Run("GetStudent_NotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, store.TableNames()...)

		w := request(t, router, http.MethodGet, "/students/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = request(t, router, http.MethodGet, "/students/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GetAllStudents_Filters", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, store.TableNames()...)
		seed(t,
			&student.Student{Name: "Zara Khan", Class: "10", Section: "A", DateOfBirth: dob("2010-01-01")},
			&student.Student{Name: "Arjun Mehta", Class: "10", Section: "B", DateOfBirth: dob("2010-02-01")},
			&student.Student{Name: "Ben Okafor", Class: "9", Section: "A", DateOfBirth: dob("2011-03-01")},
		)

		w := request(t, router, http.MethodGet, "/students", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var all []student.Student
		require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
		require.Len(t, all, 3)
		assert.Equal(t, "Arjun Mehta", all[0].Name)

		w = request(t, router, http.MethodGet, "/students?class=10&section=a", nil)
		var filtered []student.Student
		require.NoError(t, json.NewDecoder(w.Body).Decode(&filtered))
		require.Len(t, filtered, 1)
		assert.Equal(t, "Zara Khan", filtered[0].Name)

		w = request(t, router, http.MethodGet, "/students?q=OKA", nil)
		var searched []student.Student
		require.NoError(t, json.NewDecoder(w.Body).Decode(&searched))
		require.Len(t, searched, 1)
		assert.Equal(t, "Ben Okafor", searched[0].Name)
	})

	t.Run("UpdateStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, store.TableNames()...)
		seed(t, &student.Student{Name: "Jane Doe", Class: "9", Section: "A", DateOfBirth: dob("2011-06-01")})

		w := request(t, router, http.MethodPut, "/students/1", map[string]any{
			"name": "Jane Smith", "class": "10", "section": "c", "date_of_birth": "2011-06-01",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var response student.Student
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Jane Smith", response.Name)
		assert.Equal(t, "C", response.Section)

		w = request(t, router, http.MethodPut, "/students/42", map[string]any{
			"name": "Nobody", "class": "10", "section": "A", "date_of_birth": "2011-06-01",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("DeleteStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, store.TableNames()...)
		seed(t, &student.Student{Name: "Jane Doe", Class: "9", Section: "A", DateOfBirth: dob("2011-06-01")})

		w := request(t, router, http.MethodDelete, "/students/1", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = request(t, router, http.MethodDelete, "/students/1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListClasses", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, store.TableNames()...)
		seed(t,
			&student.Student{Name: "A One", Class: "10", Section: "B", DateOfBirth: dob("2010-01-01")},
			&student.Student{Name: "A Two", Class: "10", Section: "A", DateOfBirth: dob("2010-01-01")},
			&student.Student{Name: "A Three", Class: "10", Section: "A", DateOfBirth: dob("2010-01-01")},
		)

		w := request(t, router, http.MethodGet, "/classes", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var classes []student.ClassSection
		require.NoError(t, json.NewDecoder(w.Body).Decode(&classes))
		assert.Equal(t, []student.ClassSection{{Class: "10", Section: "A"}, {Class: "10", Section: "B"}}, classes)
	})

	t.Run("ExportCSV", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, store.TableNames()...)
		seed(t, &student.Student{Name: "Jane Doe", Class: "9", Section: "A", DateOfBirth: dob("2011-06-01")})

		w := request(t, router, http.MethodGet, "/export/students.csv", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "students.csv")

		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "id,name,class,section,date_of_birth")
		assert.Equal(t, "1,Jane Doe,9,A,2011-06-01", strings.TrimSpace(lines[1]))
	})
}
