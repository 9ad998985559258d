package filings

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
)

func doGet(t *testing.T, handler http.HandlerFunc) (*http.Response, []byte) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/documents.json")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestCheckStatus_NestedStatus404_ProducesNotFoundError(t *testing.T) {
	resp, body := doGet(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"metadata":{"title":"t","parameter":{"date":"2024-01-15","type":"2"},"resultset":{"count":0},"processDateTime":"now","status":"404","message":"Not Found"}}`))
	})

	err := CheckStatus(resp, body, false)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindAPINotFound, appErr.Kind)
	assert.Equal(t, 404, appErr.StatusCode)
	assert.Contains(t, appErr.Endpoint, "/documents.json")
}

func TestCheckStatus_NormalEnvelope_NoError(t *testing.T) {
	resp, body := doGet(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"metadata":{"title":"t","resultset":{"count":1},"status":"200","message":"OK"},"results":[{"docID":"S100ABCD"}]}`))
	})

	err := CheckStatus(resp, body, false)
	assert.NoError(t, err)
}

func TestCheckStatus_ShapeA_NonZeroStatusCode_ProducesError(t *testing.T) {
	resp, body := doGet(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"statusCode":401,"message":"invalid credentials"}`))
	})

	err := CheckStatus(resp, body, false)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindAPIAuthentication, appErr.Kind)
}

// TestCheckStatus_UnrecognizedJSONShape_RaisesUnexpectedJSONResponse pins
// the open-question decision (DESIGN.md): an HTTP 200 JSON body matching
// neither known error shape nor the normal envelope raises
// ApiError(status_code=0, "Unexpected JSON response") verbatim.
func TestCheckStatus_UnrecognizedJSONShape_RaisesUnexpectedJSONResponse(t *testing.T) {
	resp, body := doGet(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	err := CheckStatus(resp, body, true)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, 0, appErr.StatusCode)
	assert.Equal(t, "Unexpected JSON response", appErr.Message)
}

func TestCheckStatus_BinaryDownload_NoError(t *testing.T) {
	resp, body := doGet(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("%PDF-1.4 binary content"))
	})

	err := CheckStatus(resp, body, true)
	assert.NoError(t, err)
}

func TestCheckStatus_HTTP401_ProducesAuthenticationError(t *testing.T) {
	resp, body := doGet(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad key"}`))
	})

	err := CheckStatus(resp, body, false)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindAPIAuthentication, appErr.Kind)
	assert.Equal(t, 401, appErr.StatusCode)
}
