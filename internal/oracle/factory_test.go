package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	clearKeys := func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
	}

	t.Run("anthropic_wins_precedence", func(t *testing.T) {
		clearKeys(t)
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		provider, key, err := DetectProvider()
		require.NoError(t, err)
		assert.Equal(t, ProviderAnthropic, provider)
		assert.Equal(t, "sk-ant-test", key)
	})

	t.Run("gemini_last", func(t *testing.T) {
		clearKeys(t)
		t.Setenv("GEMINI_API_KEY", "g-test")

		provider, _, err := DetectProvider()
		require.NoError(t, err)
		assert.Equal(t, ProviderGemini, provider)
	})

	t.Run("no_keys_is_auth_error", func(t *testing.T) {
		clearKeys(t)
		_, _, err := DetectProvider()
		assert.ErrorIs(t, err, ErrAuth)
	})
}

func TestNewClient(t *testing.T) {
	t.Run("missing_key", func(t *testing.T) {
		_, err := NewClient(Settings{Provider: ProviderAnthropic})
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("unknown_provider", func(t *testing.T) {
		_, err := NewClient(Settings{Provider: "bedrock", APIKey: "k"})
		assert.Error(t, err)
	})

	t.Run("model_override", func(t *testing.T) {
		c, err := NewClient(Settings{Provider: ProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"})
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", c.Model())
		assert.True(t, c.SchemaCapable())
	})

	t.Run("gemini_not_schema_capable", func(t *testing.T) {
		c, err := NewClient(Settings{Provider: ProviderGemini, APIKey: "k"})
		require.NoError(t, err)
		assert.False(t, c.SchemaCapable())
	})
}
