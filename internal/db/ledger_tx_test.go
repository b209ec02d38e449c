package db

import (
	"context"
	"errors"
	"testing"

	"pdfscan/internal/ledger"
	"pdfscan/internal/models"
)

func TestRecordRun_UpsertIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	l := ledger.New(db, ledger.SkipExisting)

	for _, path := range []string{"/src/a.txt", "/src/again/a.txt"} {
		_, err := l.RecordRun(ctx, "a.pdf", path, ledger.Matches{
			"keyword1": {{Content: "ello keyword1 worl"}},
		})
		if err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}
	}

	var count int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM processed_files WHERE file_name = 'a.pdf'`).Scan(&count); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 1 {
		t.Errorf("processed_files rows = %d, want 1", count)
	}

	f, err := db.GetProcessedFile(ctx, "a.pdf")
	if err != nil {
		t.Fatalf("GetProcessedFile() error = %v", err)
	}
	if f.FilePath != "/src/again/a.txt" {
		t.Errorf("FilePath = %q, want %q", f.FilePath, "/src/again/a.txt")
	}

	matches, err := db.ListMatches(ctx, models.MatchFilter{FileName: "a.pdf"})
	if err != nil {
		t.Fatalf("ListMatches() error = %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("ListMatches() = %d matches, want 1 under skip-existing", len(matches))
	}
	if len(matches) == 1 && matches[0].Keyword != "keyword1" {
		t.Errorf("match keyword = %q, want keyword1", matches[0].Keyword)
	}
}

func TestRecordRun_RollbackOnFailure(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	l := ledger.New(db, ledger.AlwaysInsert)

	if err := l.MarkFailed(ctx, "b.pdf", "/src/b.pdf"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	// A NUL byte is rejected by PostgreSQL text columns, failing the second insert.
	_, err := l.RecordRun(ctx, "b.pdf", "/src/b.txt", ledger.Matches{
		"alpha": {{Content: "fine"}, {Content: "bad\x00content"}},
	})
	if err == nil {
		t.Fatal("RecordRun() error = nil, want failure")
	}

	matches, err := db.ListMatches(ctx, models.MatchFilter{FileName: "b.pdf"})
	if err != nil {
		t.Fatalf("ListMatches() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("ListMatches() = %d, want 0 after rollback", len(matches))
	}

	f, err := db.GetProcessedFile(ctx, "b.pdf")
	if err != nil {
		t.Fatalf("GetProcessedFile() error = %v", err)
	}
	if f.Status != models.StatusFailed {
		t.Errorf("Status = %q, want %q", f.Status, models.StatusFailed)
	}

	if _, err := db.GetKeywordByText(ctx, "alpha"); !errors.Is(err, ErrKeywordNotFound) {
		t.Errorf("GetKeywordByText() error = %v, want ErrKeywordNotFound", err)
	}
}

func TestFileStatusCounts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	l := ledger.New(db, ledger.SkipExisting)

	if _, err := l.RecordRun(ctx, "ok.pdf", "/ok.txt", nil); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := l.MarkFailed(ctx, "bad.pdf", "/bad.pdf"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	counts, err := db.FileStatusCounts(ctx)
	if err != nil {
		t.Fatalf("FileStatusCounts() error = %v", err)
	}
	if counts[models.StatusProcessed] != 1 || counts[models.StatusFailed] != 1 {
		t.Errorf("FileStatusCounts() = %v, want one of each", counts)
	}
}
