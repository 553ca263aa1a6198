package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// groundedAnswers holds per-scenario state for the feature steps.
type groundedAnswers struct {
	t      *testing.T
	env    *testEnv
	dir    string
	result domain.QueryResult
	stats  domain.IngestionStats
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name: "grounded-answers",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			s := &groundedAnswers{t: t}
			sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				s.env = newTestEnv(t)
				s.dir = t.TempDir()
				s.result = domain.QueryResult{}
				s.stats = domain.IngestionStats{}
				return ctx, nil
			})
			s.register(sc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func (s *groundedAnswers) register(sc *godog.ScenarioContext) {
	sc.Step(`^an empty document store$`, s.anEmptyDocumentStore)
	sc.Step(`^a PDF "([^"]*)" with the page "([^"]*)"$`, s.aPDFWithThePage)
	sc.Step(`^a directory with a PDF "([^"]*)" and a file "([^"]*)"$`, s.aDirectoryWith)
	sc.Step(`^I ask "([^"]*)"$`, s.iAsk)
	sc.Step(`^I ingest "([^"]*)"$`, s.iIngest)
	sc.Step(`^I ingest the directory$`, s.iIngestTheDirectory)
	sc.Step(`^the answer is successful$`, s.theAnswerIs(true))
	sc.Step(`^the answer is not successful$`, s.theAnswerIs(false))
	sc.Step(`^the answer is the refusal message$`, s.theAnswerIsTheRefusal)
	sc.Step(`^the generation service was not called$`, s.generationNotCalled)
	sc.Step(`^no port was called$`, s.noPortCalled)
	sc.Step(`^the error kind is "([^"]*)"$`, s.theErrorKindIs)
	sc.Step(`^the first source contains "([^"]*)"$`, s.theFirstSourceContains)
	sc.Step(`^the first source is "([^"]*)" page (\d+)$`, s.theFirstSourceIs)
	sc.Step(`^the store holds (\d+) chunks?$`, s.theStoreHolds)
	sc.Step(`^the batch reports (\d+) total, (\d+) successful and (\d+) failed$`, s.theBatchReports)
	sc.Step(`^the batch lists the error "([^"]*)"$`, s.theBatchListsTheError)
}

func (s *groundedAnswers) anEmptyDocumentStore() error {
	if n := s.env.store.Len(); n != 0 {
		return fmt.Errorf("expected empty store, found %d chunks", n)
	}
	return nil
}

func (s *groundedAnswers) aPDFWithThePage(name, text string) error {
	s.env.loader.SetPages(name, text)
	return os.WriteFile(filepath.Join(s.dir, name), []byte("%PDF-1.4"), 0o600)
}

func (s *groundedAnswers) aDirectoryWith(pdf, other string) error {
	s.env.loader.SetPages(pdf, "Applications close on DEADLINE-7731.")
	for _, name := range []string{pdf, other} {
		if err := os.WriteFile(filepath.Join(s.dir, name), []byte("content"), 0o600); err != nil {
			return err
		}
	}
	return nil
}

func (s *groundedAnswers) iAsk(question string) error {
	s.result = s.env.queryPipeline().Answer(context.Background(), question, true)
	return nil
}

func (s *groundedAnswers) iIngest(name string) error {
	r := s.env.ingestionPipeline(s.t).Ingest(context.Background(), filepath.Join(s.dir, name), nil)
	if !r.Success {
		return fmt.Errorf("ingest %s failed: %v", name, r.Err())
	}
	return nil
}

func (s *groundedAnswers) iIngestTheDirectory() error {
	s.stats = s.env.ingestionPipeline(s.t).IngestMany(context.Background(), s.dir)
	return nil
}

func (s *groundedAnswers) theAnswerIs(success bool) func() error {
	return func() error {
		if s.result.Success != success {
			return fmt.Errorf("expected success=%v, got %v (error: %v)", success, s.result.Success, s.result.Error)
		}
		return nil
	}
}

func (s *groundedAnswers) theAnswerIsTheRefusal() error {
	if s.result.Answer == nil || *s.result.Answer != s.env.prompts.T.Refusal {
		return fmt.Errorf("expected refusal message, got %v", s.result.Answer)
	}
	if len(s.result.Sources) != 0 {
		return fmt.Errorf("expected no sources, got %d", len(s.result.Sources))
	}
	return nil
}

func (s *groundedAnswers) generationNotCalled() error {
	if n := s.env.llm.Calls(); n != 0 {
		return fmt.Errorf("expected no generation calls, got %d", n)
	}
	return nil
}

func (s *groundedAnswers) noPortCalled() error {
	if s.env.embedder.Calls() != 0 || s.env.store.QueryCalls != 0 || s.env.llm.Calls() != 0 {
		return fmt.Errorf("expected no port calls: embed=%d query=%d llm=%d",
			s.env.embedder.Calls(), s.env.store.QueryCalls, s.env.llm.Calls())
	}
	return nil
}

func (s *groundedAnswers) theErrorKindIs(kind string) error {
	if s.result.Error == nil || string(s.result.Error.Kind) != kind {
		return fmt.Errorf("expected error kind %s, got %+v", kind, s.result.Error)
	}
	return nil
}

func (s *groundedAnswers) theFirstSourceContains(text string) error {
	if len(s.result.Sources) == 0 {
		return fmt.Errorf("expected sources, got none")
	}
	if !strings.Contains(s.result.Sources[0].Content, text) {
		return fmt.Errorf("expected %q in %q", text, s.result.Sources[0].Content)
	}
	return nil
}

func (s *groundedAnswers) theFirstSourceIs(source string, page int) error {
	if len(s.result.Sources) == 0 {
		return fmt.Errorf("expected sources, got none")
	}
	got := s.result.Sources[0]
	if got.Source != source || got.Page != page {
		return fmt.Errorf("expected %s page %d, got %s page %d", source, page, got.Source, got.Page)
	}
	return nil
}

func (s *groundedAnswers) theStoreHolds(n int) error {
	if got := s.env.store.Len(); got != n {
		return fmt.Errorf("expected %d chunks, got %d", n, got)
	}
	return nil
}

func (s *groundedAnswers) theBatchReports(total, successful, failed int) error {
	if s.stats.Total != total || s.stats.Successful != successful || s.stats.Failed != failed {
		return fmt.Errorf("expected %d/%d/%d, got %d/%d/%d", total, successful, failed,
			s.stats.Total, s.stats.Successful, s.stats.Failed)
	}
	return nil
}

func (s *groundedAnswers) theBatchListsTheError(msg string) error {
	for _, e := range s.stats.Errors {
		if e == msg {
			return nil
		}
	}
	return fmt.Errorf("expected error %q in %v", msg, s.stats.Errors)
}
