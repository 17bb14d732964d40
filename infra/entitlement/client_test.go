package entitlement_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/infra/entitlement"
	"github.com/nneven/runtrigger/pkg/config"
)

func TestClient_Get(t *testing.T) {
	t.Run("Should report access granted on a 200 reply", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]bool{"has_access": true})
		}))
		defer server.Close()

		cfg := &config.EntitlementConfig{
			BaseURL: server.URL,
			Timeout: 5 * time.Second,
			APIKey:  config.SensitiveString("test-key"),
		}
		client := entitlement.New(cfg)
		state, err := client.Get(context.Background(), core.MustNewID())
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.True(t, state.HasAccess)
	})

	t.Run("Should surface an error on a non-2xx reply", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		cfg := &config.EntitlementConfig{BaseURL: server.URL, Timeout: 5 * time.Second}
		client := entitlement.New(cfg)
		_, err := client.Get(context.Background(), core.MustNewID())
		assert.Error(t, err)
	})
}
