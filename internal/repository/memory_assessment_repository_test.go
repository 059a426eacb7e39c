package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

func newAssessment(id, source string, at time.Time) *models.Assessment {
	return &models.Assessment{
		ID:        id,
		Source:    source,
		CreatedAt: at,
		Result: models.QualityResult{
			OverallScore: 0.5,
			Issues:       []string{"Poor sharpness"},
			Metrics:      []models.QualityMetric{{Name: "Sharpness", Score: 0.2}},
		},
	}
}

func ids(list []*models.Assessment) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMemoryAssessmentRepository_SaveAndGet(t *testing.T) {
	repo := NewMemoryAssessmentRepository(4)
	ctx := context.Background()

	a := newAssessment("a1", "upload", time.Now())
	if err := repo.SaveAssessment(ctx, a); err != nil {
		t.Fatalf("SaveAssessment: %v", err)
	}

	got, err := repo.GetAssessment(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAssessment: %v", err)
	}
	if got.ID != "a1" || got.Result.OverallScore != 0.5 {
		t.Errorf("Unexpected assessment %+v", got)
	}

	// stored copies are isolated from caller mutation
	a.Result.Issues[0] = "mutated"
	got.Result.Metrics[0].Score = 99
	again, _ := repo.GetAssessment(ctx, "a1")
	if again.Result.Issues[0] != "Poor sharpness" || again.Result.Metrics[0].Score != 0.2 {
		t.Errorf("Stored assessment was mutated: %+v", again.Result)
	}

	if _, err := repo.GetAssessment(ctx, "missing"); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("Expected ErrAssessmentNotFound, got %v", err)
	}
}

func TestMemoryAssessmentRepository_InvalidAssessment(t *testing.T) {
	repo := NewMemoryAssessmentRepository(1)
	if err := repo.SaveAssessment(context.Background(), nil); !errors.Is(err, ErrInvalidAssessment) {
		t.Errorf("Expected ErrInvalidAssessment for nil, got %v", err)
	}
	if err := repo.SaveAssessment(context.Background(), &models.Assessment{}); !errors.Is(err, ErrInvalidAssessment) {
		t.Errorf("Expected ErrInvalidAssessment for empty id, got %v", err)
	}
}

func TestMemoryAssessmentRepository_Eviction(t *testing.T) {
	repo := NewMemoryAssessmentRepository(3)
	ctx := context.Background()
	base := time.Now()

	for i := 1; i <= 5; i++ {
		if err := repo.SaveAssessment(ctx, newAssessment(fmt.Sprintf("a%d", i), "url", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	if repo.Len() != 3 {
		t.Errorf("Expected 3 entries, got %d", repo.Len())
	}
	for _, id := range []string{"a1", "a2"} {
		if _, err := repo.GetAssessment(ctx, id); !errors.Is(err, ErrAssessmentNotFound) {
			t.Errorf("Expected %s to be evicted, got %v", id, err)
		}
	}

	list, err := repo.ListAssessments(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a5", "a4", "a3"}; !equalIDs(ids(list), want) {
		t.Errorf("List = %v, want %v", ids(list), want)
	}
}

func TestMemoryAssessmentRepository_ReplaceKeepsSlot(t *testing.T) {
	repo := NewMemoryAssessmentRepository(2)
	ctx := context.Background()

	repo.SaveAssessment(ctx, newAssessment("a1", "url", time.Now()))
	repo.SaveAssessment(ctx, newAssessment("a2", "url", time.Now()))

	updated := newAssessment("a1", "url", time.Now())
	updated.Result.OverallScore = 0.9
	if err := repo.SaveAssessment(ctx, updated); err != nil {
		t.Fatal(err)
	}

	if repo.Len() != 2 {
		t.Errorf("Expected replace not to grow the ring, got %d", repo.Len())
	}
	got, err := repo.GetAssessment(ctx, "a2")
	if err != nil {
		t.Fatalf("a2 should survive a replace: %v", err)
	}
	if got.ID != "a2" {
		t.Errorf("unexpected %s", got.ID)
	}
	a1, _ := repo.GetAssessment(ctx, "a1")
	if a1.Result.OverallScore != 0.9 {
		t.Errorf("Expected replaced score 0.9, got %f", a1.Result.OverallScore)
	}
}

func TestMemoryAssessmentRepository_ListFilterAndLimit(t *testing.T) {
	repo := NewMemoryAssessmentRepository(10)
	ctx := context.Background()

	sources := []string{"url", "upload", "url", "upload", "url"}
	for i, s := range sources {
		repo.SaveAssessment(ctx, newAssessment(fmt.Sprintf("a%d", i), s, time.Now()))
	}

	tests := []struct {
		name   string
		source string
		limit  int
		want   []string
	}{
		{"all", "", 0, []string{"a4", "a3", "a2", "a1", "a0"}},
		{"limit", "", 2, []string{"a4", "a3"}},
		{"source", "upload", 0, []string{"a3", "a1"}},
		{"source and limit", "url", 2, []string{"a4", "a2"}},
		{"unknown source", "batch", 0, []string{}},
		{"limit above count", "", 50, []string{"a4", "a3", "a2", "a1", "a0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.ListAssessments(ctx, tt.source, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if !equalIDs(ids(list), tt.want) {
				t.Errorf("List = %v, want %v", ids(list), tt.want)
			}
		})
	}
}

func TestMemoryAssessmentRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryAssessmentRepository(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.SaveAssessment(ctx, newAssessment("a", "url", time.Now())); !errors.Is(err, context.Canceled) {
		t.Errorf("Save: expected context.Canceled, got %v", err)
	}
	if _, err := repo.GetAssessment(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get: expected context.Canceled, got %v", err)
	}
	if _, err := repo.ListAssessments(ctx, "", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("List: expected context.Canceled, got %v", err)
	}
}

func TestMemoryAssessmentRepository_Concurrent(t *testing.T) {
	repo := NewMemoryAssessmentRepository(16)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("a%d", i)
			repo.SaveAssessment(ctx, newAssessment(id, "url", time.Now()))
			repo.GetAssessment(ctx, id)
			repo.ListAssessments(ctx, "url", 5)
		}(i)
	}
	wg.Wait()

	if repo.Len() != 16 {
		t.Errorf("Expected full ring of 16, got %d", repo.Len())
	}
	list, _ := repo.ListAssessments(ctx, "", 0)
	if len(list) != 16 {
		t.Errorf("Expected 16 listed, got %d", len(list))
	}
}

func TestNewMemoryAssessmentRepository_DefaultCapacity(t *testing.T) {
	repo := NewMemoryAssessmentRepository(0)
	if len(repo.ring) != DefaultHistoryLimit {
		t.Errorf("Expected default capacity %d, got %d", DefaultHistoryLimit, len(repo.ring))
	}
}
