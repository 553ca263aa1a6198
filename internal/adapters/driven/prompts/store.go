package prompts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

// FileName is the template file looked up inside the override directory.
const FileName = "prompts.yaml"

//go:embed prompts.yaml
var embedded []byte

// Verify interface compliance
var _ driven.PromptStore = (*Store)(nil)

// Store serves grounding templates from a YAML file in dir, falling back to
// the embedded defaults when dir is empty or has no prompts.yaml.
type Store struct {
	dir string

	mu      sync.RWMutex
	current domain.PromptTemplates
	source  string
}

// NewStore loads and validates the templates once.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Templates returns the active template set.
func (s *Store) Templates(ctx context.Context) (domain.PromptTemplates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// Source reports where the active templates were read from.
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Reload re-reads the templates. On error the previous set stays active.
func (s *Store) Reload() error {
	data, source, err := s.read()
	if err != nil {
		return err
	}

	t, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	s.mu.Lock()
	s.current = t
	s.source = source
	s.mu.Unlock()
	return nil
}

func (s *Store) read() ([]byte, string, error) {
	if s.dir == "" {
		return embedded, "embedded", nil
	}
	path := filepath.Join(s.dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return embedded, "embedded", nil
	}
	if err != nil {
		return nil, "", domain.WrapError(err, domain.KindConfiguration, "could not read %s", path)
	}
	return data, path, nil
}

// Parse decodes and validates a YAML template set.
func Parse(data []byte) (domain.PromptTemplates, error) {
	var t domain.PromptTemplates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return domain.PromptTemplates{}, domain.WrapError(err, domain.KindConfiguration, "prompt templates are not valid YAML")
	}
	if strings.TrimSpace(t.Version) == "" {
		return domain.PromptTemplates{}, domain.NewError(domain.KindConfiguration, "prompt templates must declare a version")
	}
	if strings.TrimSpace(t.Refusal) == "" {
		return domain.PromptTemplates{}, domain.NewError(domain.KindConfiguration, "refusal template is empty")
	}
	if strings.TrimSpace(t.NoContextError) == "" {
		t.NoContextError = "No relevant documents found in the database"
	}
	if _, err := services.ParseGroundingTemplate(t.Grounding); err != nil {
		return domain.PromptTemplates{}, err
	}
	return t, nil
}
