package app

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/RyanBlaney/sonido-catalog/configs"
	"github.com/RyanBlaney/sonido-catalog/internal/catalog"
	"github.com/RyanBlaney/sonido-catalog/internal/classify"
	"github.com/RyanBlaney/sonido-catalog/internal/pipeline"
	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// Context holds the process-wide application state: configuration, the
// read-only trained artifacts, the vector store connection and the services
// built on top. It is constructed once at startup and passed explicitly —
// no module-level singletons.
type Context struct {
	Config *configs.Config
	Logger logging.Logger

	Scaler     *classify.Scaler
	Classifier *classify.Classifier

	Store    *catalog.QdrantStore
	Catalog  *catalog.Catalog
	Enricher *catalog.PlaylistEnricher
	Pipeline *pipeline.Pipeline
}

// NewContext builds the full application context for the API server:
// artifacts loaded, vector store connected, pipeline wired.
func NewContext(cfg *configs.Config) (*Context, error) {
	if err := configs.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	scaler, classifier, err := loadArtifacts(cfg)
	if err != nil {
		return nil, err
	}

	store, err := catalog.NewQdrantStore(catalog.QdrantConfig{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
	})
	if err != nil {
		return nil, err
	}

	trackCatalog := catalog.NewCatalog(store)
	enricher := catalog.NewPlaylistEnricher(trackCatalog,
		rand.New(rand.NewSource(time.Now().UnixNano())))

	pipe := pipeline.New(pipeline.Options{
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
	}, scaler, classifier, trackCatalog)

	logger.Info("application context initialized", logging.Fields{
		"qdrant_collection": cfg.Qdrant.Collection,
		"max_concurrency":   cfg.Pipeline.MaxConcurrency,
	})

	return &Context{
		Config:     cfg,
		Logger:     logger,
		Scaler:     scaler,
		Classifier: classifier,
		Store:      store,
		Catalog:    trackCatalog,
		Enricher:   enricher,
		Pipeline:   pipe,
	}, nil
}

// NewOfflineContext builds a context without a vector store connection,
// for CLI classification and extraction against local files.
func NewOfflineContext(cfg *configs.Config) (*Context, error) {
	logger := logging.NewLogger(cfg.LogLevel)

	scaler, classifier, err := loadArtifacts(cfg)
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(pipeline.Options{
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
	}, scaler, classifier, nil)

	return &Context{
		Config:     cfg,
		Logger:     logger,
		Scaler:     scaler,
		Classifier: classifier,
		Pipeline:   pipe,
	}, nil
}

// Close releases external connections
func (c *Context) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}

// loadArtifacts reads the scaler and classifier once; they are shared
// read-only across all requests afterwards.
func loadArtifacts(cfg *configs.Config) (*classify.Scaler, *classify.Classifier, error) {
	scaler, err := classify.LoadScaler(cfg.Artifacts.ScalerPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load scaler artifact: %w", err)
	}

	classifier, err := classify.LoadClassifier(cfg.Artifacts.ModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model artifact: %w", err)
	}

	return scaler, classifier, nil
}
