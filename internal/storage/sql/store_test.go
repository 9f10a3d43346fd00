package sql

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sqlite", errors.New("UNIQUE constraint failed: labs.id"), true},
		{"postgres", errors.New(`pq: duplicate key value violates unique constraint "labs_pkey"`), true},
		{"unrelated", errors.New("disk I/O error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryOnIDConflict(t *testing.T) {
	conflict := errors.New("UNIQUE constraint failed: labs.id")

	t.Run("retries past a conflict", func(t *testing.T) {
		calls := 0
		err := retryOnIDConflict(func() error {
			calls++
			if calls == 1 {
				return conflict
			}
			return nil
		})
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		failure := errors.New("disk I/O error")
		calls := 0
		err := retryOnIDConflict(func() error {
			calls++
			return failure
		})
		if err != failure {
			t.Fatalf("err = %v, want %v", err, failure)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("gives up after persistent conflicts", func(t *testing.T) {
		calls := 0
		err := retryOnIDConflict(func() error {
			calls++
			return conflict
		})
		if err != conflict {
			t.Fatalf("err = %v, want the conflict error", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})
}
