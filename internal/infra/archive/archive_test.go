package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalPut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	if err := store.Put(context.Background(), "uploads/quiz-1.pdf", []byte("%PDF-1.7"), "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "uploads", "quiz-1.pdf"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "%PDF-1.7" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	if err := store.Put(context.Background(), "../escape.txt", []byte("x"), "text/plain"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}

func TestLocalRequiresDir(t *testing.T) {
	if _, err := NewLocal(""); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
