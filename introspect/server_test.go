package introspect_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/km-arc/go-ioc-container/example"
	"github.com/km-arc/go-ioc-container/introspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *introspect.Server {
	t.Helper()
	f, err := example.Bootstrap()
	require.NoError(t, err)
	return introspect.New(f)
}

func TestServer_ListBeansIncludesRegisteredNames(t *testing.T) {
	srv := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/beans", nil)
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var beans []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &beans))

	var names []string
	for _, b := range beans {
		names = append(names, b["name"].(string))
	}
	assert.Contains(t, names, "greetingService")
	assert.Contains(t, names, "repository")
}

func TestServer_DescribeBeanReturns404ForUnknownName(t *testing.T) {
	srv := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/beans/nope", nil)
	srv.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_DescribeBeanMarksReadyAfterResolution(t *testing.T) {
	f, err := example.Bootstrap()
	require.NoError(t, err)
	_, err = f.GetBean(context.Background(), "greetingService")
	require.NoError(t, err)

	srv := introspect.New(f)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/beans/greetingService", nil)
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["ready"])
}

func TestServer_ListAliasesIncludesGreeterAlias(t *testing.T) {
	srv := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/aliases", nil)
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body["greetingService"], "greeter")
}

func TestServer_HealthReportsUpByDefault(t *testing.T) {
	srv := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "up", body["status"])
}
