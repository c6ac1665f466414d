package testsupport

import (
	"context"
	"testing"

	"neuroflow/internal/config"
	"neuroflow/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewSubject registers a subject row for tests using the provided store.
func NewSubject(t testing.TB, st *store.Store, subjectID, sourceDir string) *store.Subject {
	t.Helper()

	subject, err := st.UpsertSubject(context.Background(), subjectID, sourceDir)
	if err != nil {
		t.Fatalf("store.UpsertSubject: %v", err)
	}
	return subject
}
