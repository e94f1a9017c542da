package session

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func doc(name string) *domain.Document {
	d := domain.NewDocument(name, "some text")
	d.Language = "en"
	return d
}

func TestLifecycle(t *testing.T) {
	s := New("en")
	assert.Equal(t, Empty, s.State())

	_, _, err := s.BeginAnswer()
	assert.ErrorIs(t, err, ErrNoDocument)

	require.NoError(t, s.BeginIndexing())
	assert.Equal(t, Indexing, s.State())

	_, _, err = s.BeginAnswer()
	assert.ErrorIs(t, err, ErrIndexing)

	d := doc("a.txt")
	assert.Nil(t, s.FinishIndexing(d))
	assert.Equal(t, Ready, s.State())

	got, lang, err := s.BeginAnswer()
	require.NoError(t, err)
	assert.Same(t, d, got)
	assert.Equal(t, "en", lang)
	assert.Equal(t, Answering, s.State())

	_, _, err = s.BeginAnswer()
	assert.ErrorIs(t, err, ErrBusy)

	s.EndAnswer(got, &domain.Turn{Question: "q", Answer: "a"})
	assert.Equal(t, Ready, s.State())
	require.Len(t, s.History(), 1)

	old, err := s.Clear()
	require.NoError(t, err)
	assert.Same(t, d, old)
	assert.Equal(t, Empty, s.State())
	assert.Empty(t, s.History())

	_, _, err = s.BeginAnswer()
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestFailIndexingRestoresPrevious(t *testing.T) {
	s := New("en")

	require.NoError(t, s.BeginIndexing())
	s.FailIndexing()
	assert.Equal(t, Empty, s.State())

	d := doc("a.txt")
	require.NoError(t, s.BeginIndexing())
	s.FinishIndexing(d)
	s.EndAnswer(d, &domain.Turn{Question: "kept"})

	require.NoError(t, s.BeginIndexing())
	s.FailIndexing()
	assert.Equal(t, Ready, s.State())
	assert.Same(t, d, s.Document())
	assert.Len(t, s.History(), 1)
}

func TestReplacementClearsHistory(t *testing.T) {
	s := New("en")
	first, second := doc("a.txt"), doc("b.txt")

	require.NoError(t, s.BeginIndexing())
	s.FinishIndexing(first)
	s.EndAnswer(first, &domain.Turn{Question: "q"})

	require.NoError(t, s.BeginIndexing())
	old := s.FinishIndexing(second)
	assert.Same(t, first, old)
	assert.Empty(t, s.History())
}

func TestBusyStatesRejectUploadAndClear(t *testing.T) {
	s := New("en")
	d := doc("a.txt")
	require.NoError(t, s.BeginIndexing())

	assert.ErrorIs(t, s.BeginIndexing(), ErrIndexing)
	_, err := s.Clear()
	assert.ErrorIs(t, err, ErrIndexing)

	s.FinishIndexing(d)
	_, _, err = s.BeginAnswer()
	require.NoError(t, err)

	assert.ErrorIs(t, s.BeginIndexing(), ErrBusy)
	_, err = s.Clear()
	assert.ErrorIs(t, err, ErrBusy)
}

func TestStaleTurnIsDropped(t *testing.T) {
	s := New("en")
	d := doc("a.txt")
	require.NoError(t, s.BeginIndexing())
	s.FinishIndexing(d)

	other := doc("b.txt")
	s.EndAnswer(other, &domain.Turn{Question: "stale"})
	assert.Empty(t, s.History())
}

func TestQuestionsAreSerialized(t *testing.T) {
	s := New("en")
	require.NoError(t, s.BeginIndexing())
	s.FinishIndexing(doc("a.txt"))

	var ok, busy atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, _, err := s.BeginAnswer(); err == nil {
				ok.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrBusy)
				busy.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(15), busy.Load())
}

func TestSnapshot(t *testing.T) {
	s := New("es")
	require.NoError(t, s.BeginIndexing())
	s.FinishIndexing(doc("a.txt"))
	s.SetLanguage("fr")

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, "fr", snap.Language)
	require.NotNil(t, snap.Document)
	assert.Equal(t, "a.txt", snap.Document.FileName)

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"ready"`)

	var back Snapshot
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Ready, back.State)

	var st State
	assert.Error(t, st.UnmarshalText([]byte("sleeping")))
}

func TestStore(t *testing.T) {
	st := NewStore("en")
	assert.Equal(t, "en", st.Language())

	s := st.Create()
	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, "en", got.Language())

	named := st.GetOrCreate("cli")
	assert.Equal(t, "cli", named.ID)
	assert.Same(t, named, st.GetOrCreate("cli"))
	assert.Equal(t, 2, st.Len())

	removed, ok := st.Delete(s.ID)
	assert.True(t, ok)
	assert.Same(t, s, removed)
	assert.Equal(t, 1, st.Len())
}

func TestStore_Sweep(t *testing.T) {
	st := NewStore("en")
	idle := st.Create()
	busy := st.Create()
	fresh := st.Create()

	past := time.Now().Add(-3 * time.Hour)
	idle.mu.Lock()
	idle.lastUsed = past
	idle.mu.Unlock()

	require.NoError(t, busy.BeginIndexing())
	busy.mu.Lock()
	busy.lastUsed = past
	busy.mu.Unlock()

	removed := st.Sweep(time.Hour)
	require.Len(t, removed, 1)
	assert.Same(t, idle, removed[0])

	_, ok := st.Get(busy.ID)
	assert.True(t, ok)
	_, ok = st.Get(fresh.ID)
	assert.True(t, ok)
}

func TestStore_SweptSessionRejectsWork(t *testing.T) {
	st := NewStore("en")
	s := st.Create()
	s.mu.Lock()
	s.lastUsed = time.Now().Add(-3 * time.Hour)
	s.mu.Unlock()

	// a caller that fetched the session before the sweep still holds it
	held, ok := st.Get(s.ID)
	require.True(t, ok)
	require.Len(t, st.Sweep(time.Hour), 1)

	assert.ErrorIs(t, held.BeginIndexing(), ErrClosed)
	_, _, err := held.BeginAnswer()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = held.Clear()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, Empty, held.State())
}
