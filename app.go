package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giygas/medigraph/config"
	"github.com/giygas/medigraph/extraction"
	"github.com/giygas/medigraph/graph"
	"github.com/giygas/medigraph/importer"
	"github.com/giygas/medigraph/interfaces"
	"github.com/giygas/medigraph/logging"
	"github.com/giygas/medigraph/pipeline"
	"github.com/giygas/medigraph/prompts"
	"github.com/giygas/medigraph/query"
)

const connectTimeout = 30 * time.Second

var (
	errNoLLM     = errors.New("OPENAI_API_KEY is not set")
	errNoQuerier = errors.New("questions need the neo4j backend")
)

// app holds the components shared by every command. pipeline and answerer
// stay nil when their dependencies are not configured.
type app struct {
	cfg      *config.Config
	store    graph.Store
	importer *importer.Importer
	pipeline interfaces.Pipeline
	answerer interfaces.QuestionAnswerer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		importer: importer.New(store),
	}

	if !cfg.HasLLM() {
		logging.Info("No model configured, scans and questions are disabled")
		return a, nil
	}

	set, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		a.close()
		return nil, err
	}

	client := extraction.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	ocr, err := extraction.NewOCRExtractor(client, cfg.OpenAIModel, set.OCR)
	if err != nil {
		a.close()
		return nil, err
	}
	details, err := extraction.NewDetailGenerator(client, cfg.OpenAIModel, set.Details)
	if err != nil {
		a.close()
		return nil, err
	}
	a.pipeline = pipeline.New(ocr, details, a.importer)

	if querier, ok := store.(graph.Querier); ok {
		a.answerer = query.New(client, querier, set, cfg.OpenAIModel)
	}
	return a, nil
}

// openStore connects the configured backend and makes sure its uniqueness
// constraints exist.
func openStore(ctx context.Context, cfg *config.Config) (graph.Store, error) {
	var store graph.Store
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logging.Warn("Using the in-memory graph store, nothing is persisted")
		store = graph.NewMemoryStore()

	default:
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		neo, err := graph.OpenNeo4j(ctx, graph.Neo4jConfig{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUsername,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return nil, err
		}
		store = neo
	}

	if err := store.EnsureConstraints(ctx, importer.Constraints()); err != nil {
		_ = store.Close(context.Background())
		return nil, fmt.Errorf("failed to create constraints: %w", err)
	}
	return store, nil
}

func (a *app) requirePipeline() error {
	if a.pipeline == nil {
		return errNoLLM
	}
	return nil
}

func (a *app) requireAnswerer() error {
	if !a.cfg.HasLLM() {
		return errNoLLM
	}
	if a.answerer == nil {
		return errNoQuerier
	}
	return nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		logging.Warn("Failed to close graph store", "error", err)
	}
}
