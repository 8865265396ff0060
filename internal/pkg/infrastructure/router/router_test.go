package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matryer/is"
)

func TestCORSPreflightIsAnswered(t *testing.T) {
	is := is.New(t)

	r := New("test-service")
	r.Post("/api/v1/things", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/things", nil)
	req.Header.Add("Origin", "http://example.com")
	req.Header.Add("Access-Control-Request-Method", http.MethodPost)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	is.True(w.Code < 300) // a preflight request should be accepted
	is.True(w.Header().Get("Access-Control-Allow-Origin") != "") // any origin should be allowed
}

func TestPanicsAreRecovered(t *testing.T) {
	is := is.New(t)

	r := New("test-service")
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	is.Equal(w.Code, http.StatusInternalServerError)
}
