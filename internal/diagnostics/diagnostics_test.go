package diagnostics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callumalpass/mdbase-lsp/internal/docstore"
	"github.com/callumalpass/mdbase-lsp/internal/schema"
)

type recordingPublisher struct {
	mu    sync.Mutex
	calls []string
	last  []Diagnostic
}

func (r *recordingPublisher) PublishDiagnostics(uri string, diags []Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, uri)
	r.last = diags
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func testCollection(root string) func() (*schema.Collection, error) {
	return func() (*schema.Collection, error) {
		return &schema.Collection{Root: root, Settings: schema.DefaultSettings()}, nil
	}
}

func TestPublishNow_InvalidFrontmatterDiagnostic(t *testing.T) {
	root := t.TempDir()
	store := docstore.New()
	uri := "file://" + root + "/a.md"
	store.Open(uri, "---\n[bad\n---\nBody\n")

	pub := &recordingPublisher{}
	p := New(testCollection(root), store, pub, nil, 300*time.Millisecond)
	p.PublishNow(uri, "open")

	require.Equal(t, 1, pub.count())
	require.Len(t, pub.last, 1)
	assert.Equal(t, "invalid_frontmatter", pub.last[0].Code)
}

func TestScheduleDebounced_CoalescesRapidChanges(t *testing.T) {
	root := t.TempDir()
	store := docstore.New()
	uri := "file://" + root + "/a.md"
	store.Open(uri, "---\ntitle: A\n---\n")

	pub := &recordingPublisher{}
	p := New(testCollection(root), store, pub, nil, 40*time.Millisecond)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		p.ScheduleDebounced(ctx, uri)
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, pub.count())
}
