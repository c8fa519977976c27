package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/cortex/internal/config"
	"github.com/cortexlabs/cortex/internal/extract"
	"github.com/cortexlabs/cortex/internal/scanner"
)

type fakeFileRow struct {
	id   int64
	hash string
}

type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	files   map[string]fakeFileRow
	content map[int64]string
	deleted map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:   make(map[string]fakeFileRow),
		content: make(map[int64]string),
		deleted: make(map[string]bool),
	}
}

func (s *fakeStore) UpsertFile(meta FileMeta) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.files[meta.Path]
	if ok && existing.hash == meta.ContentHash {
		return existing.id, false, nil
	}

	var id int64
	if ok {
		id = existing.id
	} else {
		s.nextID++
		id = s.nextID
	}
	s.files[meta.Path] = fakeFileRow{id: id, hash: meta.ContentHash}
	return id, true, nil
}

func (s *fakeStore) UpsertContent(fileID int64, text, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[fileID] = text
	return nil
}

func (s *fakeStore) MarkDeleted(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[path] = true
	return nil
}

func (s *fakeStore) contentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.content)
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
}

func (e *fakeExtractor) Extract(_ context.Context, path string) (extract.ExtractedContent, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return extract.ExtractedContent{Text: "content of " + path, WordCount: 3}, nil
}

func (e *fakeExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type recordingSink struct {
	mu     sync.Mutex
	events []TopicEvent
}

func (s *recordingSink) Emit(topic string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, TopicEvent{Topic: topic, Payload: payload})
}

func (s *recordingSink) byTopic(topic string) []TopicEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TopicEvent
	for _, e := range s.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

func newTestScanner() *scanner.Scanner {
	cfg := config.NewConfig().Scan
	cfg.AllowExtensions = []string{"txt", ""}
	return scanner.New(cfg)
}

func TestCoordinator_StartIndexesAllFilesAndCompletes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("world"), 0o644))

	st := newFakeStore()
	ex := &fakeExtractor{}
	sink := &recordingSink{}
	c := NewCoordinator(newTestScanner(), ex, st, sink)

	require.NoError(t, c.Start(context.Background(), []string{dir}))
	c.Wait()

	status := c.Status()
	assert.Equal(t, StateCompleted, status.State)
	assert.Equal(t, 2, status.Processed)
	assert.Equal(t, 2, st.contentCount())
	assert.Equal(t, 2, ex.callCount())

	completions := sink.byTopic(TopicCompletion)
	require.Len(t, completions, 1)
	event := completions[0].Payload.(CompletionEvent)
	assert.Equal(t, StateCompleted, event.State)
	assert.Equal(t, 2, event.Processed)
}

func TestCoordinator_StartWhileRunningFailsWithAlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	st := newFakeStore()
	ex := &fakeExtractor{}
	sink := &recordingSink{}
	c := NewCoordinator(newTestScanner(), ex, st, sink)

	require.NoError(t, c.Start(context.Background(), []string{dir}))
	err := c.Start(context.Background(), []string{dir})

	require.Error(t, err)
	c.Wait()
}

func TestCoordinator_UnchangedHashSkipsExtraction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("stable"), 0o644))

	st := newFakeStore()
	ex := &fakeExtractor{}
	sink := &recordingSink{}
	c := NewCoordinator(newTestScanner(), ex, st, sink)

	require.NoError(t, c.Start(context.Background(), []string{dir}))
	c.Wait()
	assert.Equal(t, 1, ex.callCount())

	c2 := NewCoordinator(newTestScanner(), ex, st, sink)
	require.NoError(t, c2.Start(context.Background(), []string{dir}))
	c2.Wait()

	assert.Equal(t, 1, ex.callCount(), "unchanged content hash should skip re-extraction")
}

func TestCoordinator_CancelTransitionsToCancelled(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		name := time.Now().Add(time.Duration(i) * time.Microsecond).Format("150405.000000000") + ".txt"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	st := newFakeStore()
	ex := &fakeExtractor{}
	sink := &recordingSink{}
	c := NewCoordinator(newTestScanner(), ex, st, sink)

	require.NoError(t, c.Start(context.Background(), []string{dir}))
	require.NoError(t, c.Cancel())
	c.Wait()

	status := c.Status()
	assert.Equal(t, StateCancelled, status.State)
}

func TestCoordinator_CancelWithNoActiveRunFailsWithNotRunning(t *testing.T) {
	c := NewCoordinator(newTestScanner(), &fakeExtractor{}, newFakeStore(), &recordingSink{})

	err := c.Cancel()

	require.Error(t, err)
}

func TestCoordinator_CleanRunCompletesWithoutErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("ok"), 0o644))

	st := newFakeStore()
	ex := &fakeExtractor{}
	sink := &recordingSink{}
	c := NewCoordinator(newTestScanner(), ex, st, sink)

	require.NoError(t, c.Start(context.Background(), []string{dir}))
	c.Wait()

	status := c.Status()
	assert.Equal(t, StateCompleted, status.State)
	assert.Empty(t, status.Errors)
}

func TestCoordinator_RootUnavailableSurfacesSynchronously(t *testing.T) {
	c := NewCoordinator(newTestScanner(), &fakeExtractor{}, newFakeStore(), &recordingSink{})

	err := c.Start(context.Background(), []string{filepath.Join(t.TempDir(), "does-not-exist")})

	require.Error(t, err)
}
