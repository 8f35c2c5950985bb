package chatstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/devassist/pkg/turns"
)

func newTestSQLiteHistoryStore(t *testing.T) *SQLiteHistoryStore {
	t.Helper()
	s, err := OpenSQLiteHistoryStoreFile(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func historyStores(t *testing.T) map[string]HistoryStore {
	return map[string]HistoryStore{
		"sqlite": newTestSQLiteHistoryStore(t),
		"memory": NewInMemoryHistoryStore(),
	}
}

func TestHistoryStore_AppendPreservesOrder(t *testing.T) {
	for name, s := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			payloads := []NewTurn{
				{Role: turns.RoleUser, Payload: turns.TextPayload{Text: "hi"}},
				{Role: turns.RoleModel, Payload: turns.TextPayload{Text: "hello"}},
				{Role: turns.RoleUser, Payload: turns.TextPayload{Text: "read a.txt"}},
				{Role: turns.RoleModel, Payload: turns.FunctionCallPayload{Name: "read_file_content", Args: map[string]any{"filepath": "a.txt"}}},
			}
			var seqs []int64
			for _, p := range payloads {
				seq, err := s.Append(ctx, "s1", p.Role, p.Payload)
				require.NoError(t, err)
				seqs = append(seqs, seq)
			}
			for i := 1; i < len(seqs); i++ {
				require.Greater(t, seqs[i], seqs[i-1])
			}

			got, err := s.ReadAll(ctx, "s1")
			require.NoError(t, err)
			require.Len(t, got, len(payloads))
			for i, turn := range got {
				require.Equal(t, seqs[i], turn.Sequence)
				require.Equal(t, "s1", turn.SessionID)
				require.Equal(t, payloads[i].Role, turn.Role)
				p, err := turn.Payload()
				require.NoError(t, err)
				require.Equal(t, payloads[i].Payload, p)
			}
		})
	}
}

func TestHistoryStore_SessionIsolation(t *testing.T) {
	for name, s := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Append(ctx, "A", turns.RoleUser, turns.TextPayload{Text: "for A"})
			require.NoError(t, err)
			_, err = s.Append(ctx, "B", turns.RoleUser, turns.TextPayload{Text: "for B"})
			require.NoError(t, err)
			_, err = s.Append(ctx, "A", turns.RoleModel, turns.TextPayload{Text: "also A"})
			require.NoError(t, err)

			a, err := s.ReadAll(ctx, "A")
			require.NoError(t, err)
			require.Len(t, a, 2)
			for _, turn := range a {
				require.Equal(t, "A", turn.SessionID)
			}
			b, err := s.ReadAll(ctx, "B")
			require.NoError(t, err)
			require.Len(t, b, 1)
			require.Equal(t, `{"text":"for B"}`, b[0].Content)
		})
	}
}

func TestHistoryStore_UnknownSessionIsEmpty(t *testing.T) {
	for name, s := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.ReadAll(context.Background(), "nobody")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Empty(t, got)
		})
	}
}

func TestHistoryStore_AppendTurnsIsOrderedBatch(t *testing.T) {
	for name, s := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seqs, err := s.AppendTurns(ctx, "s", []NewTurn{
				{Role: turns.RoleUser, Payload: turns.TextPayload{Text: "x"}},
				{Role: turns.RoleModel, Payload: turns.TextPayload{Text: "y"}},
			})
			require.NoError(t, err)
			require.Len(t, seqs, 2)
			require.Less(t, seqs[0], seqs[1])

			got, err := s.ReadAll(ctx, "s")
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.Equal(t, turns.RoleUser, got[0].Role)
			require.Equal(t, turns.RoleModel, got[1].Role)
		})
	}
}

func TestHistoryStore_Validation(t *testing.T) {
	for name, s := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Append(ctx, "  ", turns.RoleUser, turns.TextPayload{Text: "x"})
			require.Error(t, err)
			_, err = s.Append(ctx, "s", turns.Role("assistant"), turns.TextPayload{Text: "x"})
			require.Error(t, err)
			_, err = s.Append(ctx, "s", turns.RoleModel, nil)
			require.Error(t, err)
			_, err = s.AppendTurns(ctx, "s", nil)
			require.Error(t, err)

			// A batch with one bad turn writes nothing.
			_, err = s.AppendTurns(ctx, "s", []NewTurn{
				{Role: turns.RoleUser, Payload: turns.TextPayload{Text: "x"}},
				{Role: turns.RoleModel, Payload: turns.FunctionCallPayload{}},
			})
			require.Error(t, err)
			got, err := s.ReadAll(ctx, "s")
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestHistoryStore_ReadIsIdempotent(t *testing.T) {
	for name, s := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Append(ctx, "s", turns.RoleUser, turns.TextPayload{Text: "x"})
			require.NoError(t, err)
			first, err := s.ReadAll(ctx, "s")
			require.NoError(t, err)
			second, err := s.ReadAll(ctx, "s")
			require.NoError(t, err)
			require.Equal(t, first, second)
		})
	}
}

func TestHistoryStore_ConcurrentAppendsKeepUniqueSequences(t *testing.T) {
	for name, s := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.AppendTurns(ctx, "s", []NewTurn{
						{Role: turns.RoleUser, Payload: turns.TextPayload{Text: "q"}},
						{Role: turns.RoleModel, Payload: turns.TextPayload{Text: "a"}},
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := s.ReadAll(ctx, "s")
			require.NoError(t, err)
			require.Len(t, got, 16)
			for i := 1; i < len(got); i++ {
				require.Greater(t, got[i].Sequence, got[i-1].Sequence)
			}
			// Pairs are never interleaved.
			for i := 0; i < len(got); i += 2 {
				require.Equal(t, turns.RoleUser, got[i].Role)
				require.Equal(t, turns.RoleModel, got[i+1].Role)
			}
		})
	}
}

func TestSQLiteHistoryStore_ReadsLegacyRowsVerbatim(t *testing.T) {
	s := newTestSQLiteHistoryStore(t)
	_, err := s.db.Exec(`INSERT INTO history(session_id, role, content) VALUES('legacy', 'model', 'plain old text')`)
	require.NoError(t, err)

	got, err := s.ReadAll(context.Background(), "legacy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "plain old text", got[0].Content)
	_, err = got[0].Payload()
	require.Error(t, err)
}

func TestSQLiteHistoryStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := OpenSQLiteHistoryStoreFile(path)
	require.NoError(t, err)
	_, err = s.Append(context.Background(), "s", turns.RoleUser, turns.TextPayload{Text: "persisted"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := OpenSQLiteHistoryStoreFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })
	got, err := s2.ReadAll(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, `{"text":"persisted"}`, got[0].Content)
}

func TestSQLiteHistoryDSNForFile(t *testing.T) {
	_, err := SQLiteHistoryDSNForFile(" ")
	require.Error(t, err)

	dsn, err := SQLiteHistoryDSNForFile("/tmp/h.db")
	require.NoError(t, err)
	require.Contains(t, dsn, "file:/tmp/h.db?")
	require.Contains(t, dsn, "_journal_mode=WAL")

	dsn, err = SQLiteHistoryDSNForFile("/tmp/we?ird#100%/h.db")
	require.NoError(t, err)
	require.Equal(t, "file:/tmp/we%3Fird%23100%25/h.db?_journal_mode=WAL&_busy_timeout=5000", dsn)

	_, err = NewSQLiteHistoryStore("")
	require.Error(t, err)
}

func TestOpenSQLiteHistoryStoreFile_SpecialCharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "we?ird#dir")
	path := filepath.Join(dir, "history.db")

	s, err := OpenSQLiteHistoryStoreFile(path)
	require.NoError(t, err)
	_, err = s.Append(context.Background(), "s", turns.RoleUser, turns.TextPayload{Text: "kept"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	s2, err := OpenSQLiteHistoryStoreFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })
	got, err := s2.ReadAll(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestHistoryStore_ListSessions(t *testing.T) {
	for name, s := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lister, ok := s.(SessionLister)
			require.True(t, ok)

			empty, err := lister.ListSessions(ctx)
			require.NoError(t, err)
			require.NotNil(t, empty)
			require.Empty(t, empty)

			text := func(s string) turns.Payload { return turns.TextPayload{Text: s} }
			_, err = s.Append(ctx, "a", turns.RoleUser, text("1"))
			require.NoError(t, err)
			_, err = s.Append(ctx, "b", turns.RoleUser, text("2"))
			require.NoError(t, err)
			last, err := s.Append(ctx, "a", turns.RoleModel, text("3"))
			require.NoError(t, err)

			got, err := lister.ListSessions(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.Equal(t, SessionSummary{SessionID: "a", Turns: 2, LastSequence: last}, got[0])
			require.Equal(t, "b", got[1].SessionID)
			require.Equal(t, 1, got[1].Turns)
		})
	}
}
