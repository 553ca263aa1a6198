package prompts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

const customYAML = `version: custom-1
grounding: |
  Use only this context:
  {{.Context}}
  Question: {{.Question}}
refusal: "No information available."
`

func TestNewStore_Embedded(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	assert.Equal(t, "embedded", s.Source())

	tmpl, err := s.Templates(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tmpl.Version)
	assert.Equal(t,
		"Lo sentimos, no encontramos información relevante en nuestra base de datos. Por favor, contacta a la oficina de posgrados.",
		tmpl.Refusal)
	assert.Equal(t, "No relevant documents found in the database", tmpl.NoContextError)
	assert.Contains(t, tmpl.Grounding, "NUNCA inventes")
	assert.Contains(t, tmpl.Grounding, "No tengo información disponible sobre esto. Te recomiendo contactar directamente a la oficina de posgrados.")
}

func TestEmbeddedTemplate_RendersThroughGroundingPolicy(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	policy := services.NewGroundingPolicy(s)
	decision, err := policy.BuildPrompt(context.Background(), "¿Cuál es la fecha límite?", []domain.RetrievedChunk{
		{Chunk: domain.Chunk{ID: "a", Content: "Fecha limite: DEADLINE-7731"}, Score: 0.9, Rank: 1},
	})
	require.NoError(t, err)
	assert.False(t, decision.Refuse)
	assert.Contains(t, decision.Prompt, "CONTEXTO DE LA DOCUMENTACIÓN:\nFecha limite: DEADLINE-7731")
	assert.Contains(t, decision.Prompt, "PREGUNTA DEL USUARIO:\n¿Cuál es la fecha límite?")
}

func TestNewStore_MissingFileFallsBack(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "embedded", s.Source())
}

func TestNewStore_Override(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(customYAML), 0o644))

	s, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), s.Source())

	tmpl, _ := s.Templates(context.Background())
	assert.Equal(t, "custom-1", tmpl.Version)
	assert.Equal(t, "No information available.", tmpl.Refusal)
	assert.Equal(t, "No relevant documents found in the database", tmpl.NoContextError)
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(customYAML), 0o644))

	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(customYAML, "custom-1", "custom-2", 1)), 0o644))
	require.NoError(t, s.Reload())
	tmpl, _ := s.Templates(context.Background())
	assert.Equal(t, "custom-2", tmpl.Version)

	require.NoError(t, os.WriteFile(path, []byte("version: broken\ngrounding: \"{{.Question}}\"\nrefusal: x\n"), 0o644))
	err = s.Reload()
	require.Error(t, err)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	tmpl, _ = s.Templates(context.Background())
	assert.Equal(t, "custom-2", tmpl.Version)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "version: [unclosed"},
		{"no version", "grounding: \"{{.Context}} {{.Question}}\"\nrefusal: x\n"},
		{"no refusal", "version: v\ngrounding: \"{{.Context}} {{.Question}}\"\n"},
		{"no grounding", "version: v\nrefusal: x\n"},
		{"missing context slot", "version: v\ngrounding: \"{{.Question}}\"\nrefusal: x\n"},
		{"unknown field", "version: v\ngrounding: \"{{.Context}} {{.Question}} {{.Other}}\"\nrefusal: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
		})
	}
}
