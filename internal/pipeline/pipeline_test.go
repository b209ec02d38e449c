package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfscan/internal/extract"
	"pdfscan/internal/ledger"
	"pdfscan/internal/models"
	"pdfscan/internal/organizer"
	"pdfscan/internal/pipeline"
	"pdfscan/internal/testutil"
)

// fakeExtractor returns canned results keyed by file base name.
type fakeExtractor struct {
	results map[string]*extract.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*extract.Result, error) {
	name := filepath.Base(path)
	f.calls = append(f.calls, name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	if res, ok := f.results[name]; ok {
		return res, nil
	}
	return &extract.Result{Text: "nothing to see", Engine: "fake"}, nil
}

type failingMover struct{ err error }

func (m failingMover) Move(sourcePath, destDir string) (string, error) {
	return "", m.err
}

type recordingNotifier struct {
	files []*pipeline.FileReport
	runs  []*pipeline.Stats
}

func (n *recordingNotifier) FileFinished(ctx context.Context, r *pipeline.FileReport) {
	n.files = append(n.files, r)
}

func (n *recordingNotifier) RunFinished(ctx context.Context, s *pipeline.Stats) {
	n.runs = append(n.runs, s)
}

type env struct {
	src   string
	dest  string
	store *testutil.MemoryStore
	ex    *fakeExtractor
}

func newEnv(t *testing.T, keywords ...string) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		src:   filepath.Join(root, "src"),
		dest:  filepath.Join(root, "done"),
		store: testutil.NewMemoryStore(keywords...),
		ex:    &fakeExtractor{results: map[string]*extract.Result{}, errs: map[string]error{}},
	}
	require.NoError(t, os.MkdirAll(e.src, 0o755))
	return e
}

func (e *env) addPDF(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(e.src, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	if text != "" {
		e.ex.results[name] = &extract.Result{Text: text, Engine: "fake"}
	}
	return path
}

func (e *env) pipeline(mover pipeline.Mover) *pipeline.Pipeline {
	if mover == nil {
		mover = organizer.New()
	}
	l := ledger.New(e.store, ledger.SkipExisting)
	return pipeline.New(pipeline.Config{SourceDir: e.src, DestDir: e.dest, WindowSize: 5}, e.ex, l, mover)
}

func TestRun_EndToEnd(t *testing.T) {
	e := newEnv(t, "keyword1")
	e.addPDF(t, "a.pdf", "Hello keyword1 world")

	stats, err := e.pipeline(nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Moved)
	assert.Equal(t, 1, stats.Matches)
	assert.Empty(t, stats.Failures)

	text, err := os.ReadFile(filepath.Join(e.src, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello keyword1 world", string(text))

	assert.NoFileExists(t, filepath.Join(e.src, "a.pdf"))
	assert.FileExists(t, filepath.Join(e.dest, "a.pdf"))

	f, ok := e.store.File("a.pdf")
	require.True(t, ok)
	assert.Equal(t, models.StatusProcessed, f.Status)
	assert.Equal(t, "a.txt", filepath.Base(f.FilePath))
	assert.True(t, filepath.IsAbs(f.FilePath))

	matches, err := e.store.ListMatches(context.Background(), models.MatchFilter{FileName: "a.pdf"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ello keyword1 worl", matches[0].Content)
}

func TestRun_SnapshotFiltersAndOrders(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "b.PDF", "")
	e.addPDF(t, "a.pdf", "")
	require.NoError(t, os.WriteFile(filepath.Join(e.src, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(e.src, "dir.pdf"), 0o755))

	_, err := e.pipeline(nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.pdf", "b.PDF"}, e.ex.calls)
	assert.FileExists(t, filepath.Join(e.src, "b.txt"))
}

func TestRun_PageNumbers(t *testing.T) {
	e := newEnv(t, "needle")
	e.addPDF(t, "p.pdf", "")
	text := "first page\n\nsecond needle"
	e.ex.results["p.pdf"] = &extract.Result{
		Text:   text,
		Engine: "fake",
		Pages: []extract.Page{
			{Number: 1, Start: 0, End: 10},
			{Number: 2, Start: 12, End: len(text)},
		},
	}

	_, err := e.pipeline(nil).Run(context.Background())
	require.NoError(t, err)

	matches, err := e.store.ListMatches(context.Background(), models.MatchFilter{FileName: "p.pdf"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.NotNil(t, matches[0].PageNumber)
	assert.Equal(t, 2, *matches[0].PageNumber)
}

func TestRun_ExtractionFailure(t *testing.T) {
	e := newEnv(t, "keyword1")
	bad := e.addPDF(t, "bad.pdf", "")
	e.addPDF(t, "good.pdf", "keyword1")
	e.ex.errs["bad.pdf"] = &extract.Failure{Path: bad}

	stats, err := e.pipeline(nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Failures, 1)
	assert.ErrorIs(t, stats.Failures[0], pipeline.ErrExtraction)

	f, ok := e.store.File("bad.pdf")
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, f.Status)
	abs, _ := filepath.Abs(bad)
	assert.Equal(t, abs, f.FilePath)

	assert.FileExists(t, bad)
	assert.NoFileExists(t, filepath.Join(e.src, "bad.txt"))
	assert.FileExists(t, filepath.Join(e.dest, "good.pdf"))
}

func TestRun_WriteFailure(t *testing.T) {
	e := newEnv(t, "keyword1")
	src := e.addPDF(t, "a.pdf", "keyword1")
	// A directory where the text file should go makes the write fail.
	require.NoError(t, os.Mkdir(filepath.Join(e.src, "a.txt"), 0o755))

	stats, err := e.pipeline(nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, stats.Failures, 1)
	assert.ErrorIs(t, stats.Failures[0], pipeline.ErrWrite)
	assert.Equal(t, 0, stats.Processed)

	_, ok := e.store.File("a.pdf")
	assert.False(t, ok)
	assert.FileExists(t, src)
}

func TestRun_PersistenceFailure(t *testing.T) {
	e := newEnv(t, "keyword1")
	src := e.addPDF(t, "a.pdf", "keyword1 and keyword1")
	e.store.FailInsertAt = 2

	stats, err := e.pipeline(nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, stats.Failures, 1)
	assert.ErrorIs(t, stats.Failures[0], pipeline.ErrPersistence)
	assert.ErrorIs(t, stats.Failures[0], testutil.ErrInjected)

	_, ok := e.store.File("a.pdf")
	assert.False(t, ok)
	matches, err := e.store.ListMatches(context.Background(), models.MatchFilter{})
	require.NoError(t, err)
	assert.Empty(t, matches)

	assert.FileExists(t, src)
	assert.FileExists(t, filepath.Join(e.src, "a.txt"))
}

func TestRun_MoveFailure(t *testing.T) {
	e := newEnv(t, "keyword1")
	src := e.addPDF(t, "a.pdf", "keyword1")
	moveErr := errors.New("disk full")

	stats, err := e.pipeline(failingMover{err: moveErr}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, stats.Failures, 1)
	assert.ErrorIs(t, stats.Failures[0], pipeline.ErrMove)
	assert.ErrorIs(t, stats.Failures[0], moveErr)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.Moved)

	f, ok := e.store.File("a.pdf")
	require.True(t, ok)
	assert.Equal(t, models.StatusProcessed, f.Status)
	assert.FileExists(t, src)
	assert.FileExists(t, filepath.Join(e.src, "a.txt"))
}

func TestRun_CollisionInDestination(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "a.pdf", "")
	require.NoError(t, os.MkdirAll(e.dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.dest, "a.pdf"), []byte("old"), 0o644))

	stats, err := e.pipeline(nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Moved)

	old, err := os.ReadFile(filepath.Join(e.dest, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
	assert.FileExists(t, filepath.Join(e.dest, "a_1.pdf"))
}

func TestRun_RepeatedRunsAreIdempotent(t *testing.T) {
	e := newEnv(t, "keyword1")
	e.addPDF(t, "a.pdf", "keyword1")

	p := e.pipeline(nil)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// The same file arrives again.
	e.addPDF(t, "a.pdf", "keyword1")
	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	files, err := e.store.ListProcessedFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 1)

	matches, err := e.store.ListMatches(context.Background(), models.MatchFilter{FileName: "a.pdf"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.FileExists(t, filepath.Join(e.dest, "a_1.pdf"))
}

func TestRun_BatchErrors(t *testing.T) {
	t.Run("missing source directory", func(t *testing.T) {
		e := newEnv(t)
		require.NoError(t, os.RemoveAll(e.src))

		stats, err := e.pipeline(nil).Run(context.Background())
		assert.ErrorIs(t, err, pipeline.ErrBatch)
		assert.Nil(t, stats)
	})

	t.Run("keyword list unreadable", func(t *testing.T) {
		e := newEnv(t)
		e.addPDF(t, "a.pdf", "")
		e.store.FailList = errors.New("db down")

		_, err := e.pipeline(nil).Run(context.Background())
		assert.ErrorIs(t, err, pipeline.ErrBatch)
		assert.Empty(t, e.ex.calls)
	})

	t.Run("destination not creatable", func(t *testing.T) {
		e := newEnv(t)
		e.addPDF(t, "a.pdf", "")
		require.NoError(t, os.WriteFile(e.dest, []byte("file in the way"), 0o644))

		_, err := e.pipeline(nil).Run(context.Background())
		assert.ErrorIs(t, err, pipeline.ErrBatch)
		assert.Empty(t, e.ex.calls)
	})
}

func TestRun_CancelledBetweenFiles(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "a.pdf", "")
	e.addPDF(t, "b.pdf", "")

	ctx, cancel := context.WithCancel(context.Background())
	p := e.pipeline(nil)
	p.OnFile = func(*pipeline.FileReport) { cancel() }

	stats, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, []string{"a.pdf"}, e.ex.calls)
}

func TestRun_NotifierAndHooks(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "a.pdf", "")
	e.addPDF(t, "b.pdf", "")

	n := &recordingNotifier{}
	p := e.pipeline(nil)
	p.SetNotifier(n)
	var snapshot []string
	p.OnSnapshot = func(files []string) { snapshot = files }

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, snapshot, 2)
	assert.Len(t, n.files, 2)
	require.Len(t, n.runs, 1)
	assert.Equal(t, stats.RunID, n.runs[0].RunID)
}

func TestProcessFile(t *testing.T) {
	e := newEnv(t, "keyword1")
	src := e.addPDF(t, "single.pdf", "a keyword1 b")

	report, err := e.pipeline(nil).ProcessFile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, report.Status)
	assert.Equal(t, 1, report.Inserted)
	assert.True(t, report.Moved())
	assert.Equal(t, filepath.Join(e.dest, "single.pdf"), report.DestPath)
}

func TestProcessFile_Failure(t *testing.T) {
	e := newEnv(t)
	src := e.addPDF(t, "bad.pdf", "")
	e.ex.errs["bad.pdf"] = errors.New("corrupt")

	report, err := e.pipeline(nil).ProcessFile(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrExtraction)

	var f *pipeline.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "extraction", f.Stage())
	assert.Equal(t, models.StatusFailed, report.Status)
}

func TestRun_TextFileIsValidUTF8(t *testing.T) {
	e := newEnv(t, "keyword1")
	e.addPDF(t, "latin.pdf", "caf\xe9 keyword1 \xff")

	stats, err := e.pipeline(nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	text, err := os.ReadFile(filepath.Join(e.src, "latin.txt"))
	require.NoError(t, err)
	assert.True(t, utf8.Valid(text))
	assert.Equal(t, "caf\uFFFD keyword1 \uFFFD", string(text))

	matches, err := e.store.ListMatches(context.Background(), models.MatchFilter{FileName: "latin.pdf"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, utf8.ValidString(matches[0].Content))
}
