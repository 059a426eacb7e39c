package repository

import (
	"context"
	"sync"

	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

// DefaultHistoryLimit is used when a memory repository is created without a capacity
const DefaultHistoryLimit = 1000

// MemoryAssessmentRepository keeps the most recent assessments in a ring.
// Once full, saving a new assessment evicts the oldest one.
type MemoryAssessmentRepository struct {
	mu    sync.RWMutex
	ring  []*models.Assessment
	next  int
	count int
	index map[string]int
}

// NewMemoryAssessmentRepository creates a repository holding at most capacity entries
func NewMemoryAssessmentRepository(capacity int) *MemoryAssessmentRepository {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &MemoryAssessmentRepository{
		ring:  make([]*models.Assessment, capacity),
		index: make(map[string]int, capacity),
	}
}

// SaveAssessment stores a copy of the assessment
func (r *MemoryAssessmentRepository) SaveAssessment(ctx context.Context, a *models.Assessment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil || a.ID == "" {
		return ErrInvalidAssessment
	}
	stored := cloneAssessment(a)

	r.mu.Lock()
	defer r.mu.Unlock()

	if slot, ok := r.index[a.ID]; ok {
		r.ring[slot] = stored
		return nil
	}

	if evicted := r.ring[r.next]; evicted != nil {
		delete(r.index, evicted.ID)
	}
	r.ring[r.next] = stored
	r.index[a.ID] = r.next
	r.next = (r.next + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
	return nil
}

// GetAssessment returns a copy of the stored assessment
func (r *MemoryAssessmentRepository) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.index[id]
	if !ok {
		return nil, ErrAssessmentNotFound
	}
	return cloneAssessment(r.ring[slot]), nil
}

// ListAssessments walks the ring from the newest entry backwards
func (r *MemoryAssessmentRepository) ListAssessments(ctx context.Context, source string, limit int) ([]*models.Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > r.count {
		limit = r.count
	}
	out := make([]*models.Assessment, 0, limit)
	size := len(r.ring)
	for i := 1; i <= r.count && len(out) < limit; i++ {
		a := r.ring[(r.next-i+size)%size]
		if source != "" && a.Source != source {
			continue
		}
		out = append(out, cloneAssessment(a))
	}
	return out, nil
}

// Len returns the number of stored assessments
func (r *MemoryAssessmentRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Close is a no-op
func (r *MemoryAssessmentRepository) Close() error {
	return nil
}

func cloneAssessment(a *models.Assessment) *models.Assessment {
	cp := *a
	cp.Result.Issues = append([]string(nil), a.Result.Issues...)
	cp.Result.Metrics = append([]models.QualityMetric(nil), a.Result.Metrics...)
	if a.Extraction != nil {
		ext := *a.Extraction
		ext.Observations = append([]models.TextObservation(nil), a.Extraction.Observations...)
		if a.Extraction.Accuracy != nil {
			acc := *a.Extraction.Accuracy
			ext.Accuracy = &acc
		}
		cp.Extraction = &ext
	}
	return &cp
}
