package factory

import (
	"encoding/base64"
	"testing"

	"github.com/anime-shed/receipt-inspector-go/internal/config"
	"github.com/anime-shed/receipt-inspector-go/internal/storage"
)

func TestCreateStorage(t *testing.T) {
	cfg := config.Default()
	cfg.LocalImageRoot = t.TempDir()
	cfg.AzureStorageAccount = "acct"
	cfg.AzureStorageKey = base64.StdEncoding.EncodeToString([]byte("key"))

	f := NewStorageFactory(cfg)

	tests := []struct {
		storageType StorageType
		check       func(storage.ImageFetcher) bool
	}{
		{HTTPStorage, func(s storage.ImageFetcher) bool { _, ok := s.(*storage.HTTPImageFetcher); return ok }},
		{AzureStorage, func(s storage.ImageFetcher) bool { _, ok := s.(*storage.AzureBlobFetcher); return ok }},
		{LocalStorage, func(s storage.ImageFetcher) bool { _, ok := s.(*storage.LocalFileFetcher); return ok }},
	}

	for _, tt := range tests {
		t.Run(string(tt.storageType), func(t *testing.T) {
			fetcher, err := f.CreateStorage(tt.storageType)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(fetcher) {
				t.Errorf("unexpected fetcher type %T", fetcher)
			}
		})
	}

	if _, err := f.CreateStorage("ftp"); err == nil {
		t.Error("Expected error for unsupported storage type")
	}
}

func TestCreateScorer(t *testing.T) {
	cfg := config.Default()
	cfg.ScorerConcurrent = true
	cfg.ScorerMaxWorkers = 2

	scorer := NewComponentFactory(cfg).ScorerFactory.CreateScorer()
	if scorer == nil {
		t.Fatal("Expected non-nil scorer")
	}
	if err := scorer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
