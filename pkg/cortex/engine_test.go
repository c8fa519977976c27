package cortex_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/cortex/internal/config"
	"github.com/cortexlabs/cortex/internal/index"
	"github.com/cortexlabs/cortex/internal/search"
	"github.com/cortexlabs/cortex/pkg/cortex"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "cortex.db")
	return cfg
}

// waitForCompletion drains sink until indexing:complete arrives, failing
// the test if it doesn't within timeout.
func waitForCompletion(t *testing.T, sink *index.ChannelSink, timeout time.Duration) index.CompletionEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case evt := <-sink.Events():
			if evt.Topic == index.TopicCompletion {
				return evt.Payload.(index.CompletionEvent)
			}
		case <-deadline:
			t.Fatal("timed out waiting for indexing:complete")
		}
	}
}

// Scenario 1 (spec.md §8.1): create three plain-text/markup files, index
// the root, wait for completion, then assert file counts and a keyword
// query returns exactly the files containing the term with a marked
// snippet.
func TestEngine_PlainTextIndexingAndSearch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("rust programming"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.md"), []byte("# Heading\n\nrust guide"), 0o644))

	sink := index.NewChannelSink(64)
	e, err := cortex.Open(newTestConfig(t), sink)
	require.NoError(t, err)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, e.StartIndexing(ctx, []string{root}))
	waitForCompletion(t, sink, 5*time.Second)

	stats, _, _, err := e.GetSearchStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, 3, stats.IndexedFiles)

	results, err := e.SearchFiles("rust", search.Filters{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, results.Hits, 2)

	names := map[string]bool{}
	for _, h := range results.Hits {
		names[h.Filename] = true
		assert.Contains(t, h.Snippet, "<mark>rust</mark>")
	}
	assert.True(t, names["b.txt"])
	assert.True(t, names["c.md"])
}

// Scenario 4 (spec.md §8.4): files of 1KB/2MB/20MB with identical mtime
// must be reported smallest-priority-tier-first, largest-last, in the
// current_file sequence of indexing:progress events.
func TestEngine_PriorityOrdering(t *testing.T) {
	root := t.TempDir()

	mtime := time.Now().Add(-time.Hour)
	write := func(name string, size int64) {
		data := make([]byte, size)
		for i := range data {
			data[i] = 'x'
		}
		path := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	write("tiny.txt", 1*1024)
	write("small.txt", 2*1024*1024)
	write("medium.txt", 20*1024*1024)

	sink := index.NewChannelSink(64)
	e, err := cortex.Open(newTestConfig(t), sink)
	require.NoError(t, err)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, e.StartIndexing(ctx, []string{root}))

	var sequence []string
	timeout := time.After(5 * time.Second)
collect:
	for {
		select {
		case evt := <-sink.Events():
			switch p := evt.Payload.(type) {
			case index.ProgressEvent:
				sequence = append(sequence, filepath.Base(p.CurrentFile))
			case index.CompletionEvent:
				break collect
			}
		case <-timeout:
			t.Fatal("timed out waiting for indexing:complete")
		}
	}
	require.NotEmpty(t, sequence)
	assert.Equal(t, "tiny.txt", sequence[0])
	assert.Equal(t, "medium.txt", sequence[len(sequence)-1])
}

// Scenario 5 (spec.md §8.5): cancelling mid-run after a handful of
// progress events still reaches indexing:complete, with processed < total
// and the status no longer reporting active.
func TestEngine_CancellationStopsRunEarly(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 200; i++ {
		name := filepath.Join(root, "file"+padNum(i)+".txt")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	sink := index.NewChannelSink(256)
	e, err := cortex.Open(newTestConfig(t), sink)
	require.NoError(t, err)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, e.StartIndexing(ctx, []string{root}))

	progressSeen := 0
	for progressSeen < 5 {
		evt := <-sink.Events()
		if evt.Topic == index.TopicProgress {
			progressSeen++
		}
	}

	require.NoError(t, e.StopIndexing())

	completion := waitForCompletion(t, sink, 5*time.Second)
	assert.Less(t, completion.Processed, 200)

	status := e.GetIndexStatus()
	assert.False(t, status.Active())
}

func padNum(i int) string {
	s := ""
	for _, c := range []byte{'0' + byte(i/100%10), '0' + byte(i/10%10), '0' + byte(i%10)} {
		s += string(c)
	}
	return s
}
