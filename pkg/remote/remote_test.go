package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON(t *testing.T) {
	t.Run("sends_body_and_decodes_response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "application/json", r.Header.Get("Accept"))

			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "value", in["key"])

			_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["key"]})
		}))
		defer srv.Close()

		var out map[string]string
		err := DoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL, nil,
			map[string]string{"key": "value"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "value", out["echo"])
	})

	t.Run("non_2xx_returns_api_error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("try later"))
		}))
		defer srv.Close()

		err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil, nil)
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.Contains(t, apiErr.Error(), "503")
		assert.Contains(t, apiErr.Error(), "try later")
	})

	t.Run("203_sign_in_page_is_an_api_error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNonAuthoritativeInfo)
			_, _ = w.Write([]byte("<html>Sign in to your account</html>"))
		}))
		defer srv.Close()

		var out map[string]any
		err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil, &out)
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNonAuthoritativeInfo, apiErr.StatusCode)
		assert.Contains(t, apiErr.Body, "Sign in")
	})

	t.Run("nil_out_skips_decoding", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil, nil)
		require.NoError(t, err)
	})

	t.Run("custom_headers_are_sent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte("{}"))
		}))
		defer srv.Close()

		headers := http.Header{"Authorization": {"Bearer token"}}
		err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, headers, nil, nil)
		require.NoError(t, err)
	})
}
