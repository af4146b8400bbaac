package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMiddlewareAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middlewareAuth("user", "pass", ok)

	do := func(remoteAddr, user, pass string) int {
		r := httptest.NewRequest("GET", "/api", nil)
		r.RemoteAddr = remoteAddr
		if user != "" {
			r.SetBasicAuth(user, pass)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	require.Equal(t, http.StatusUnauthorized, do("10.0.0.5:1234", "", ""))
	require.Equal(t, http.StatusUnauthorized, do("10.0.0.5:1234", "user", "wrong"))
	require.Equal(t, http.StatusOK, do("10.0.0.5:1234", "user", "pass"))

	// localhost skips auth
	require.Equal(t, http.StatusOK, do("127.0.0.1:1234", "", ""))
	require.Equal(t, http.StatusOK, do("[::1]:1234", "", ""))
}

func TestMiddlewareCORS(t *testing.T) {
	handler := middlewareCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest("GET", "/api", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestResponseJSON(t *testing.T) {
	w := httptest.NewRecorder()
	ResponseJSON(w, map[string]int{"frames": 42})

	require.Equal(t, MimeJSON, w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"frames":42}`, w.Body.String())
}
