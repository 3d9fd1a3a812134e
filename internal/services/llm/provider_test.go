package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsa-ai/responsa/internal/common"
)

func newTestFactory(llmConfig *common.LLMConfig) *ProviderFactory {
	return NewProviderFactory(
		&common.GeminiConfig{APIKey: "test-key", Model: "gemini-2.0-flash"},
		&common.ClaudeConfig{Model: "claude-sonnet-4-20250514"},
		llmConfig,
		common.GetLogger(),
	)
}

func TestGetGeminiClient_ConcurrentInitSharesOneClient(t *testing.T) {
	factory := newTestFactory(&common.LLMConfig{DefaultProvider: "gemini"})
	ctx := context.Background()

	const callers = 8
	clients := make([]interface{}, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := factory.GetGeminiClient(ctx)
			assert.NoError(t, err)
			clients[i] = client
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, clients[0], clients[i], "concurrent callers must share one client")
	}
}

func TestGetClaudeClient_MissingKeyFailsUnderConcurrency(t *testing.T) {
	factory := newTestFactory(&common.LLMConfig{DefaultProvider: "claude"})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := factory.GetClaudeClient()
			assert.Error(t, err)
		}()
	}
	wg.Wait()
}

func TestNewProviderFactory_ParsesCallTimeout(t *testing.T) {
	factory := newTestFactory(&common.LLMConfig{Timeout: "5s"})
	assert.Equal(t, 5*time.Second, factory.timeout)

	// Unparseable strings fall back to the default
	fallback := newTestFactory(&common.LLMConfig{Timeout: "soon"})
	assert.Equal(t, 60*time.Second, fallback.timeout)
}

func TestCallContext_AppliesDeadline(t *testing.T) {
	factory := newTestFactory(&common.LLMConfig{Timeout: "5s"})

	ctx, cancel := factory.callContext(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok, "provider attempts must carry a deadline")
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)

	factory.timeout = 0
	ctx, cancel = factory.callContext(context.Background())
	defer cancel()
	_, ok = ctx.Deadline()
	assert.False(t, ok)
}

func TestDetectProvider(t *testing.T) {
	factory := newTestFactory(&common.LLMConfig{DefaultProvider: "gemini"})

	tests := []struct {
		model  string
		expect ProviderType
	}{
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-3", ProviderClaude},
		{"gemini-2.0-flash", ProviderGemini},
		{"google/gemini-2.0-flash", ProviderGemini},
		{"", ProviderGemini},
		{"unknown-model", ProviderGemini},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, factory.DetectProvider(tt.model), tt.model)
	}
}

func TestNormalizeModel(t *testing.T) {
	factory := newTestFactory(&common.LLMConfig{})

	assert.Equal(t, "claude-3", factory.NormalizeModel("claude/claude-3"))
	assert.Equal(t, "gemini-2.0-flash", factory.NormalizeModel("google/gemini-2.0-flash"))
	assert.Equal(t, "gemini-2.0-flash", factory.NormalizeModel("gemini-2.0-flash"))
}
