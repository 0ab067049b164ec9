package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

type fakeResult struct {
	n   int64
	err error
}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) {
	return r.n, r.err
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	if !isUniqueViolation(wrapped) {
		t.Fatal("wrapped 23505 should be a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Fatal("foreign key violation misclassified")
	}
	if isUniqueViolation(errors.New("plain")) {
		t.Fatal("plain error misclassified")
	}
}

func TestAffected(t *testing.T) {
	if err := affected(fakeResult{n: 1}); err != nil {
		t.Fatalf("one row: %v", err)
	}
	if err := affected(fakeResult{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("zero rows: %v", err)
	}
	boom := errors.New("boom")
	if err := affected(fakeResult{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("driver error: %v", err)
	}
}
