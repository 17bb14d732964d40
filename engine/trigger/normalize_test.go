package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/environment"
)

func devEnv() *environment.Environment {
	return &environment.Environment{ID: core.MustNewID(), Type: environment.TypeDevelopment}
}

func prodEnv() *environment.Environment {
	return &environment.Environment{ID: core.MustNewID(), Type: environment.TypeProduction}
}

func TestNormalizeRequest(t *testing.T) {
	t.Run("Should default ttl to 10m in a development environment when unset", func(t *testing.T) {
		req := &Request{TaskID: "send-email"}
		got, err := normalizeRequest(req, devEnv(), 8)
		require.NoError(t, err)
		require.NotNil(t, got.TTL)
		assert.Equal(t, "10m", *got.TTL)
	})

	t.Run("Should leave ttl unset in a production environment when unset", func(t *testing.T) {
		req := &Request{TaskID: "send-email"}
		got, err := normalizeRequest(req, prodEnv(), 8)
		require.NoError(t, err)
		assert.Nil(t, got.TTL)
	})

	t.Run("Should stringify a numeric ttl", func(t *testing.T) {
		req := &Request{TaskID: "send-email", Options: RequestOptions{TTL: 90}}
		got, err := normalizeRequest(req, prodEnv(), 8)
		require.NoError(t, err)
		require.NotNil(t, got.TTL)
		assert.Equal(t, "1m30s", *got.TTL)
	})

	t.Run("Should reject a ttl of an unsupported type", func(t *testing.T) {
		req := &Request{TaskID: "send-email", Options: RequestOptions{TTL: true}}
		_, err := normalizeRequest(req, prodEnv(), 8)
		assert.Error(t, err)
	})

	t.Run("Should lift a bare tag string into a one-element slice", func(t *testing.T) {
		req := &Request{TaskID: "send-email", Options: RequestOptions{Tags: "billing"}}
		got, err := normalizeRequest(req, prodEnv(), 8)
		require.NoError(t, err)
		assert.Equal(t, []string{"billing"}, got.Tags)
	})

	t.Run("Should reject more than MaxTagsPerRun tags", func(t *testing.T) {
		tags := make([]string, 9)
		for i := range tags {
			tags[i] = "tag"
		}
		req := &Request{TaskID: "send-email", Options: RequestOptions{Tags: tags}}
		_, err := normalizeRequest(req, prodEnv(), 8)
		assert.Error(t, err)
	})

	t.Run("Should default payload and metadata type to application/json", func(t *testing.T) {
		req := &Request{TaskID: "send-email"}
		got, err := normalizeRequest(req, prodEnv(), 8)
		require.NoError(t, err)
		assert.Equal(t, "application/json", got.PayloadType)
		assert.Equal(t, "application/json", got.MetadataType)
	})

	t.Run("Should prefer QueueNameOverride over options.queue.name", func(t *testing.T) {
		override := "override-queue"
		optName := "opt-queue"
		req := &Request{
			TaskID:            "send-email",
			QueueNameOverride: &override,
			Options:           RequestOptions{Queue: &QueueOptions{Name: &optName}},
		}
		got, err := normalizeRequest(req, prodEnv(), 8)
		require.NoError(t, err)
		require.NotNil(t, got.QueueName)
		assert.Equal(t, override, *got.QueueName)
	})
}
