package grantapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/envrefresh/internal/domain"
)

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("not a url")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestClient_Grant(t *testing.T) {
	var got grantRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/environments/staging/grants", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"granted": 2}`))
	}))
	defer server.Close()

	client, err := New(server.URL+"/", WithToken("secret"))
	require.NoError(t, err)

	granted, err := client.Grant(context.Background(), domain.EnvironmentRef{Name: "staging", Namespace: "tenant-a"}, "ops@example.com")

	require.NoError(t, err)
	assert.Equal(t, 2, granted)
	assert.Equal(t, grantRequest{Account: "ops@example.com", Namespace: "tenant-a"}, got)
}

func TestClient_Grant_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	granted, err := client.Grant(context.Background(), domain.EnvironmentRef{Name: "staging"}, "ops@example.com")

	require.NoError(t, err)
	assert.Zero(t, granted)
}

func TestClient_Grant_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"token expired"}`, domain.ErrUnauthorized, "token expired"},
		{"forbidden", http.StatusForbidden, `{"message":"not an owner"}`, domain.ErrUnauthorized, "not an owner"},
		{"unknown environment", http.StatusNotFound, ``, domain.ErrResourceNotFound, "Not Found"},
		{"server error", http.StatusInternalServerError, `boom`, nil, "grant API returned 500: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := New(server.URL)
			require.NoError(t, err)

			_, err = client.Grant(context.Background(), domain.EnvironmentRef{Name: "staging"}, "ops@example.com")

			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestClient_Grant_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := New(server.URL, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = client.Grant(context.Background(), domain.EnvironmentRef{Name: "staging"}, "ops@example.com")

	assert.Error(t, err)
}
