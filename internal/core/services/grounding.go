package services

import (
	"context"
	"strings"
	"sync"
	"text/template"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// GroundingPolicy decides between refusing and answering, and renders the
// generation prompt from the versioned templates in a PromptStore.
type GroundingPolicy struct {
	prompts driven.PromptStore

	mu     sync.Mutex
	source string // grounding text the cached template was parsed from
	tmpl   *template.Template
}

// NewGroundingPolicy creates a policy backed by prompts.
func NewGroundingPolicy(prompts driven.PromptStore) *GroundingPolicy {
	return &GroundingPolicy{prompts: prompts}
}

// BuildPrompt refuses when retrieved is empty, so generation is never
// invoked without context. Otherwise the chunk contents, joined by
// domain.ContextDelimiter in rank order, fill the grounding template
// together with the question.
func (g *GroundingPolicy) BuildPrompt(ctx context.Context, question string, retrieved []domain.RetrievedChunk) (domain.PromptDecision, error) {
	t, err := g.prompts.Templates(ctx)
	if err != nil {
		return domain.PromptDecision{}, domain.WrapError(err, domain.KindConfiguration, "prompt templates unavailable")
	}

	if len(retrieved) == 0 {
		return domain.PromptDecision{
			Refuse:  true,
			Refusal: t.Refusal,
			Reason:  t.NoContextError,
			Version: t.Version,
		}, nil
	}

	tmpl, err := g.template(t.Grounding)
	if err != nil {
		return domain.PromptDecision{}, err
	}

	contextText := JoinContext(retrieved)
	var b strings.Builder
	if err := tmpl.Execute(&b, domain.PromptVars{Question: question, Context: contextText}); err != nil {
		return domain.PromptDecision{}, domain.WrapError(err, domain.KindConfiguration,
			"grounding template %s failed to render", t.Version)
	}

	return domain.PromptDecision{
		Prompt:  b.String(),
		Context: contextText,
		Version: t.Version,
	}, nil
}

// template returns the parsed grounding template, re-parsing only when the
// store hands back different text.
func (g *GroundingPolicy) template(text string) (*template.Template, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tmpl != nil && g.source == text {
		return g.tmpl, nil
	}
	tmpl, err := ParseGroundingTemplate(text)
	if err != nil {
		return nil, err
	}
	g.source, g.tmpl = text, tmpl
	return tmpl, nil
}

// JoinContext concatenates chunk contents separated by domain.ContextDelimiter.
func JoinContext(retrieved []domain.RetrievedChunk) string {
	parts := make([]string, len(retrieved))
	for i, rc := range retrieved {
		parts[i] = rc.Chunk.Content
	}
	return strings.Join(parts, domain.ContextDelimiter)
}

// ParseGroundingTemplate parses a grounding template and checks it renders
// using only the {{.Question}} and {{.Context}} slots. Both slots must appear.
func ParseGroundingTemplate(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewError(domain.KindConfiguration, "grounding template is empty")
	}

	tmpl, err := template.New("grounding").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, domain.WrapError(err, domain.KindConfiguration, "grounding template does not parse")
	}

	const q, c = "\x00question\x00", "\x00context\x00"
	var b strings.Builder
	if err := tmpl.Execute(&b, domain.PromptVars{Question: q, Context: c}); err != nil {
		return nil, domain.WrapError(err, domain.KindConfiguration, "grounding template uses unknown fields")
	}
	if !strings.Contains(b.String(), q) || !strings.Contains(b.String(), c) {
		return nil, domain.NewError(domain.KindConfiguration,
			"grounding template must reference both {{.Question}} and {{.Context}}")
	}
	return tmpl, nil
}
