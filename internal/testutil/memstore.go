package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdfscan/internal/db"
	"pdfscan/internal/ledger"
	"pdfscan/internal/models"
)

// ErrInjected is returned by MemoryStore when a configured failure fires.
var ErrInjected = errors.New("injected store failure")

// MemoryStore is an in-memory ledger.Store. Each transaction works on a copy
// of the committed state and replaces it on Commit.
type MemoryStore struct {
	mu    sync.Mutex
	state memState

	// FailInsertAt makes the n-th InsertMatch of a transaction fail (1-based).
	FailInsertAt int
	// FailBegin, FailCommit and FailUpsert make the respective calls fail.
	FailBegin  error
	FailCommit error
	FailUpsert error
	// FailList makes ListKeywords fail.
	FailList error
	// FailPing makes Ping fail.
	FailPing error
}

var _ db.Store = (*MemoryStore)(nil)

type memState struct {
	keywords []models.Keyword
	matches  []models.KeywordMatch
	files    []models.ProcessedFile
}

func (s memState) clone() memState {
	return memState{
		keywords: append([]models.Keyword(nil), s.keywords...),
		matches:  append([]models.KeywordMatch(nil), s.matches...),
		files:    append([]models.ProcessedFile(nil), s.files...),
	}
}

// NewMemoryStore creates an empty store seeded with the given keywords.
func NewMemoryStore(keywords ...string) *MemoryStore {
	s := &MemoryStore{}
	for _, k := range keywords {
		s.AddKeyword(k)
	}
	return s
}

// AddKeyword commits a keyword directly, bypassing transactions.
func (s *MemoryStore) AddKeyword(text string) models.Keyword {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.state.keywords {
		if k.Keyword == text {
			return k
		}
	}
	k := models.Keyword{ID: uuid.New(), Keyword: text, CreatedAt: time.Now()}
	s.state.keywords = append(s.state.keywords, k)
	return k
}

// SetFileStatus commits a ledger row directly, bypassing transactions.
func (s *MemoryStore) SetFileStatus(fileName, filePath, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.upsertFile(fileName, filePath, status)
}

// File returns the committed ledger row for fileName.
func (s *MemoryStore) File(fileName string) (models.ProcessedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.state.files {
		if f.FileName == fileName {
			return f, true
		}
	}
	return models.ProcessedFile{}, false
}

func (s *MemoryStore) Begin(ctx context.Context) (ledger.Tx, error) {
	if s.FailBegin != nil {
		return nil, s.FailBegin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{store: s, state: s.state.clone()}, nil
}

func (s *MemoryStore) ListKeywords(ctx context.Context) ([]models.Keyword, error) {
	if s.FailList != nil {
		return nil, s.FailList
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keywords := append([]models.Keyword(nil), s.state.keywords...)
	sort.Slice(keywords, func(i, j int) bool { return keywords[i].Keyword < keywords[j].Keyword })
	return keywords, nil
}

func (s *MemoryStore) ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.KeywordMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.KeywordMatch
	for _, m := range s.state.matches {
		if filter.KeywordID != nil && m.KeywordID != *filter.KeywordID {
			continue
		}
		if filter.FileName != "" && m.FileName != filter.FileName {
			continue
		}
		for _, k := range s.state.keywords {
			if k.ID == m.KeywordID {
				m.Keyword = k.Keyword
				break
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) ListProcessedFiles(ctx context.Context) ([]models.ProcessedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ProcessedFile(nil), s.state.files...), nil
}

func (st *memState) upsertFile(fileName, filePath, status string) {
	for i := range st.files {
		if st.files[i].FileName == fileName {
			st.files[i].FilePath = filePath
			st.files[i].Status = status
			st.files[i].ProcessedAt = time.Now()
			return
		}
	}
	st.files = append(st.files, models.ProcessedFile{
		ID:          uuid.New(),
		FileName:    fileName,
		FilePath:    filePath,
		Status:      status,
		ProcessedAt: time.Now(),
	})
}

type memTx struct {
	store   *MemoryStore
	state   memState
	inserts int
	done    bool
}

var errTxDone = errors.New("transaction already finished")

func (tx *memTx) UpsertProcessedFile(ctx context.Context, fileName, filePath, status string) error {
	if tx.done {
		return errTxDone
	}
	if tx.store.FailUpsert != nil {
		return tx.store.FailUpsert
	}
	tx.state.upsertFile(fileName, filePath, status)
	return nil
}

func (tx *memTx) GetOrCreateKeyword(ctx context.Context, text string) (*models.Keyword, error) {
	if tx.done {
		return nil, errTxDone
	}
	for _, k := range tx.state.keywords {
		if k.Keyword == text {
			k := k
			return &k, nil
		}
	}
	k := models.Keyword{ID: uuid.New(), Keyword: text, CreatedAt: time.Now()}
	tx.state.keywords = append(tx.state.keywords, k)
	return &k, nil
}

func (tx *memTx) CountMatches(ctx context.Context, keywordID uuid.UUID, fileName string) (int, error) {
	if tx.done {
		return 0, errTxDone
	}
	n := 0
	for _, m := range tx.state.matches {
		if m.KeywordID == keywordID && m.FileName == fileName {
			n++
		}
	}
	return n, nil
}

func (tx *memTx) InsertMatch(ctx context.Context, match *models.KeywordMatch) error {
	if tx.done {
		return errTxDone
	}
	tx.inserts++
	if tx.store.FailInsertAt > 0 && tx.inserts == tx.store.FailInsertAt {
		return ErrInjected
	}

	found := false
	for _, k := range tx.state.keywords {
		if k.ID == match.KeywordID {
			found = true
			break
		}
	}
	if !found {
		return errors.New("keyword does not exist")
	}

	match.ID = uuid.New()
	match.CreatedAt = time.Now()
	tx.state.matches = append(tx.state.matches, *match)
	return nil
}

func (tx *memTx) Commit(ctx context.Context) error {
	if tx.done {
		return errTxDone
	}
	tx.done = true
	if tx.store.FailCommit != nil {
		return tx.store.FailCommit
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.state = tx.state
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	tx.done = true
	return nil
}

func (s *MemoryStore) CreateKeyword(ctx context.Context, keyword *models.Keyword) error {
	keyword.Keyword = strings.TrimSpace(keyword.Keyword)
	if keyword.Keyword == "" {
		return db.ErrEmptyKeyword
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.state.keywords {
		if k.Keyword == keyword.Keyword {
			return db.ErrDuplicateKeyword
		}
	}
	keyword.ID = uuid.New()
	keyword.CreatedAt = time.Now()
	s.state.keywords = append(s.state.keywords, *keyword)
	return nil
}

func (s *MemoryStore) GetKeywordByID(ctx context.Context, id uuid.UUID) (*models.Keyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.state.keywords {
		if k.ID == id {
			k := k
			return &k, nil
		}
	}
	return nil, db.ErrKeywordNotFound
}

func (s *MemoryStore) DeleteKeyword(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, k := range s.state.keywords {
		if k.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return db.ErrKeywordNotFound
	}
	s.state.keywords = append(s.state.keywords[:idx:idx], s.state.keywords[idx+1:]...)
	matches := s.state.matches[:0:0]
	for _, m := range s.state.matches {
		if m.KeywordID != id {
			matches = append(matches, m)
		}
	}
	s.state.matches = matches
	return nil
}

func (s *MemoryStore) ImportKeywords(ctx context.Context, keywords []string) (*models.KeywordImportResult, error) {
	result := &models.KeywordImportResult{Added: []string{}, Existing: []string{}}
	seen := make(map[string]struct{}, len(keywords))
	for _, text := range keywords {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		err := s.CreateKeyword(ctx, &models.Keyword{Keyword: text})
		switch {
		case errors.Is(err, db.ErrDuplicateKeyword):
			result.Existing = append(result.Existing, text)
		case err != nil:
			return nil, err
		default:
			result.Added = append(result.Added, text)
		}
	}
	return result, nil
}

func (s *MemoryStore) KeywordMatchCounts(ctx context.Context) ([]models.KeywordStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make([]models.KeywordStat, 0, len(s.state.keywords))
	for _, k := range s.state.keywords {
		var n int64
		for _, m := range s.state.matches {
			if m.KeywordID == k.ID {
				n++
			}
		}
		stats = append(stats, models.KeywordStat{Keyword: k.Keyword, Matches: n})
	}
	return stats, nil
}

func (s *MemoryStore) FileStatusCounts(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, f := range s.state.files {
		counts[f.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return s.FailPing
}
