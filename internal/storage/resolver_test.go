package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"postboard/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	batches [][]string
	fail    map[string]bool
	err     error
}

func (f *fakeStore) Put(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeStore) Get(context.Context, string) ([]byte, string, error) {
	return nil, "", errors.New("not implemented")
}

func (f *fakeStore) TempURLs(_ context.Context, ids []string) ([]TempURLResult, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), ids...))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]TempURLResult, 0, len(ids))
	for _, id := range ids {
		if f.fail[id] {
			out = append(out, TempURLResult{FileID: id, Status: 1, ErrMsg: "STORAGE_FILE_NONEXIST"})
			continue
		}
		out = append(out, TempURLResult{FileID: id, TempURL: "https://cdn.test/" + id[len(FileIDPrefix):]})
	}
	return out, nil
}

func TestResolver_FiltersDedupesAndBatches(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, nil)

	ids := []string{"https://already/url.png", ""}
	for i := 0; i < 120; i++ {
		ids = append(ids, FileID("b", "img/"+string(rune('a'+i%26))+string(rune('a'+i/26))+".jpg"))
	}
	ids = append(ids, ids[2], ids[3])

	urls := r.Resolve(context.Background(), ids)
	assert.Len(t, urls, 120)
	assert.NotContains(t, urls, "https://already/url.png")

	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 50)
	assert.Len(t, store.batches[1], 50)
	assert.Len(t, store.batches[2], 20)
}

func TestResolver_FailuresKeepOriginal(t *testing.T) {
	store := &fakeStore{fail: map[string]bool{"cloud://b/gone.jpg": true}}
	r := NewResolver(store, nil)

	urls := r.Resolve(context.Background(), []string{"cloud://b/ok.jpg", "cloud://b/gone.jpg"})
	assert.Equal(t, map[string]string{"cloud://b/ok.jpg": "https://cdn.test/b/ok.jpg"}, urls)

	got := ApplyList(urls, []string{"cloud://b/ok.jpg", "cloud://b/gone.jpg", "https://x/y.png"})
	assert.Equal(t, []string{"https://cdn.test/b/ok.jpg", "cloud://b/gone.jpg", "https://x/y.png"}, got)
	assert.Equal(t, "", Apply(urls, ""))

	store.err = errors.New("upstream down")
	assert.Empty(t, r.Resolve(context.Background(), []string{"cloud://b/ok.jpg"}))
}

func TestResolver_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &fakeStore{}
	r := NewResolver(store, cache.NewURLCache(client, time.Minute))
	ctx := context.Background()

	first := r.Resolve(ctx, []string{"cloud://b/a.jpg"})
	require.Len(t, store.batches, 1)

	second := r.Resolve(ctx, []string{"cloud://b/a.jpg"})
	assert.Equal(t, first, second)
	assert.Len(t, store.batches, 1, "cached id must not hit the store")

	mr.FastForward(2 * time.Minute)
	r.Resolve(ctx, []string{"cloud://b/a.jpg"})
	assert.Len(t, store.batches, 2)
}

func TestResolver_EmptyInput(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, nil)
	assert.Empty(t, r.Resolve(context.Background(), []string{"", "https://x"}))
	assert.Empty(t, store.batches)
}
