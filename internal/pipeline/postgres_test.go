package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfscan/internal/extract"
	"pdfscan/internal/ledger"
	"pdfscan/internal/models"
	"pdfscan/internal/organizer"
	"pdfscan/internal/pipeline"
	"pdfscan/internal/testutil"
)

func TestRun_Postgres(t *testing.T) {
	database, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()

	testutil.CreateTestKeyword(t, database, "invoice")
	testutil.CreateTestKeyword(t, database, "total")

	root := t.TempDir()
	src, dest := filepath.Join(root, "src"), filepath.Join(root, "done")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bill.pdf"), []byte("%PDF-1.4"), 0o644))

	ex := &fakeExtractor{
		results: map[string]*extract.Result{
			"bill.pdf": {Text: "Invoice 42, total due. Invoice copy.", Engine: "fake"},
		},
		errs: map[string]error{},
	}
	p := pipeline.New(pipeline.Config{SourceDir: src, DestDir: dest, WindowSize: 4}, ex,
		ledger.New(database, ledger.SkipExisting), organizer.New())

	stats, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 3, stats.Matches)
	assert.FileExists(t, filepath.Join(dest, "bill.pdf"))
	assert.FileExists(t, filepath.Join(src, "bill.txt"))

	pf, err := database.GetProcessedFile(ctx, "bill.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, pf.Status)
	assert.True(t, filepath.IsAbs(pf.FilePath))

	matches, err := database.ListMatches(ctx, models.MatchFilter{FileName: "bill.pdf"})
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	// The same name again adds nothing under skip-existing.
	require.NoError(t, os.WriteFile(filepath.Join(src, "bill.pdf"), []byte("%PDF-1.4"), 0o644))
	stats, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Moved)
	assert.FileExists(t, filepath.Join(dest, "bill_1.pdf"))

	matches, err = database.ListMatches(ctx, models.MatchFilter{FileName: "bill.pdf"})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}
