package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientMatch(t *testing.T) {
	var gotPath string
	var gotForm domain.OrchestrationForm

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotForm))

		_ = json.NewEncoder(w).Encode(domain.MatchResult{
			Matches:  []domain.ProviderMatch{{ProviderSystem: "provider-1", ServiceURI: "/temp"}},
			Warnings: []string{"stale metadata"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zap.NewNop())

	result, err := client.Match(context.Background(), &domain.OrchestrationForm{
		RequesterSystem:   "system-1",
		ServiceDefinition: "temperature",
	})
	require.NoError(t, err)

	assert.Equal(t, "/registry/v1/match", gotPath)
	assert.Equal(t, "temperature", gotForm.ServiceDefinition)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "provider-1", result.Matches[0].ProviderSystem)
	assert.Equal(t, []string{"stale metadata"}, result.Warnings)
}

func TestClientMatchInterCloudPath(t *testing.T) {
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(domain.MatchResult{})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zap.NewNop())

	_, err := client.MatchInterCloud(context.Background(), &domain.OrchestrationForm{})
	require.NoError(t, err)
	assert.Equal(t, "/registry/v1/match/intercloud", gotPath)
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "matching unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zap.NewNop())

	_, err := client.Match(context.Background(), &domain.OrchestrationForm{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "matching unavailable")
}
