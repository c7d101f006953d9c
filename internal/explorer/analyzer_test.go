package explorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noesis/internal/oracle"
)

// analysisOracle returns a fixed analysis payload for every request.
type analysisOracle struct {
	payload map[string]interface{}
}

func (a *analysisOracle) Complete(_ context.Context, _ oracle.Request) (*oracle.Reply, error) {
	return &oracle.Reply{Text: "unused"}, nil
}

func (a *analysisOracle) CompleteWithTools(_ context.Context, _ oracle.Request, _ []oracle.ToolDefinition) (*oracle.ToolResponse, error) {
	return &oracle.ToolResponse{
		ToolCalls: []oracle.ToolCall{{Name: "record_analysis", Input: a.payload}},
	}, nil
}

func (a *analysisOracle) SchemaCapable() bool { return true }
func (a *analysisOracle) Model() string       { return "scripted" }

func TestAnalyze(t *testing.T) {
	client := &analysisOracle{payload: map[string]interface{}{
		"core_concept": "quantum entanglement",
		"domain":       "physics/quantum mechanics",
		"level":        "intermediate",
		"goal":         "Understand how entangled particles maintain correlation",
	}}

	analysis, err := NewAnalyzer(client).Analyze(context.Background(), "explain entanglement")
	require.NoError(t, err)
	assert.Equal(t, "quantum entanglement", analysis.CoreConcept)
	assert.Equal(t, "physics/quantum mechanics", analysis.Domain)
	assert.Equal(t, LevelIntermediate, analysis.Level)
}

func TestAnalyzeLevelClamped(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  string
	}{
		{"beginner_kept", "beginner", LevelBeginner},
		{"advanced_kept", "Advanced", LevelAdvanced},
		{"garbage_degrades", "expert", LevelIntermediate},
		{"empty_degrades", "", LevelIntermediate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &analysisOracle{payload: map[string]interface{}{
				"core_concept": "calculus",
				"domain":       "mathematics",
				"level":        tt.level,
				"goal":         "learn",
			}}
			analysis, err := NewAnalyzer(client).Analyze(context.Background(), "teach me calculus")
			require.NoError(t, err)
			assert.Equal(t, tt.want, analysis.Level)
		})
	}
}

func TestAnalyzeEmptyConceptFallsBackToInput(t *testing.T) {
	client := &analysisOracle{payload: map[string]interface{}{
		"core_concept": "  ",
		"domain":       "mathematics",
		"level":        "beginner",
		"goal":         "learn",
	}}
	analysis, err := NewAnalyzer(client).Analyze(context.Background(), "Fourier analysis")
	require.NoError(t, err)
	assert.Equal(t, "Fourier analysis", analysis.CoreConcept)
}
