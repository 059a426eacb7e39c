package factory

import (
	"fmt"

	"github.com/anime-shed/receipt-inspector-go/internal/analyzer"
	"github.com/anime-shed/receipt-inspector-go/internal/config"
	"github.com/anime-shed/receipt-inspector-go/internal/storage"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

// ScorerFactory creates quality scorers
type ScorerFactory interface {
	CreateScorer() *analyzer.Scorer
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(
			storage.WithClientTimeout(f.cfg.ImageFetchTimeout),
			storage.WithMaxPixels(f.cfg.MaxPixels),
		), nil
	case AzureStorage:
		fetcher, err := storage.NewAzureBlobFetcher(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, f.cfg.MaxPixels)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	case LocalStorage:
		fetcher, err := storage.NewLocalFileFetcher(f.cfg.LocalImageRoot, f.cfg.MaxPixels)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// scorerFactory implements ScorerFactory
type scorerFactory struct {
	cfg *config.Config
}

// NewScorerFactory creates a new scorer factory
func NewScorerFactory(cfg *config.Config) ScorerFactory {
	return &scorerFactory{cfg: cfg}
}

// CreateScorer builds a scorer using the configured concurrency
func (f *scorerFactory) CreateScorer() *analyzer.Scorer {
	opts := analyzer.SequentialOptions()
	if f.cfg.ScorerConcurrent {
		opts = analyzer.DefaultOptions().WithMaxWorkers(f.cfg.ScorerMaxWorkers)
	}
	return analyzer.NewScorer(opts)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ScorerFactory  ScorerFactory
	StorageFactory StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		ScorerFactory:  NewScorerFactory(cfg),
		StorageFactory: NewStorageFactory(cfg),
	}
}
