package render

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/BouyguesTelecom/static.js-sub000/pkg/routes"
)

func TestCacheHitWhileFresh(t *testing.T) {
	epoch := NewEpoch(0)
	cache := NewCache(epoch)

	cache.Put("index", "<html>home</html>")

	html, ok := cache.Get("index")
	if !ok {
		t.Fatal("Get(index) missed immediately after Put")
	}
	if html != "<html>home</html>" {
		t.Errorf("Get(index) = %q", html)
	}
}

func TestCacheStaleAfterBump(t *testing.T) {
	epoch := NewEpoch(0)
	cache := NewCache(epoch)

	cache.Put("index", "old")
	epoch.Bump()

	if _, ok := cache.Get("index"); ok {
		t.Error("Get(index) hit after epoch bump, want miss")
	}

	// A re-render at the new epoch is fresh again.
	cache.Put("index", "new")
	html, ok := cache.Get("index")
	if !ok || html != "new" {
		t.Errorf("Get(index) = %q, %v after re-put, want new, true", html, ok)
	}
}

func TestCacheMissUnknownKey(t *testing.T) {
	cache := NewCache(NewEpoch(0))
	if _, ok := cache.Get("nope"); ok {
		t.Error("Get(nope) hit on empty cache")
	}
}

func TestEpochMonotonic(t *testing.T) {
	epoch := NewEpoch(7)
	if got := epoch.Current(); got != 7 {
		t.Fatalf("Current() = %d, want 7", got)
	}
	if got := epoch.Bump(); got != 8 {
		t.Errorf("Bump() = %d, want 8", got)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			epoch.Bump()
		}()
	}
	wg.Wait()

	if got := epoch.Current(); got != 58 {
		t.Errorf("Current() = %d after 50 concurrent bumps, want 58", got)
	}
}

// countingRenderer records how often each key was rendered.
type countingRenderer struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func (r *countingRenderer) Render(_ context.Context, page Page) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	key := page.CacheKey()
	r.calls[key]++
	if r.fail {
		return "", fmt.Errorf("render blew up")
	}
	return "doc:" + key, nil
}

func TestCachedRendererRendersOnce(t *testing.T) {
	epoch := NewEpoch(0)
	inner := &countingRenderer{}
	cached := NewCachedRenderer(inner, NewCache(epoch))

	page := Page{Route: &routes.Entry{Name: "about"}}
	for i := 0; i < 3; i++ {
		html, err := cached.Render(context.Background(), page)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if html != "doc:about" {
			t.Fatalf("Render = %q", html)
		}
	}
	if inner.calls["about"] != 1 {
		t.Errorf("inner rendered %d times, want 1", inner.calls["about"])
	}

	epoch.Bump()
	if _, err := cached.Render(context.Background(), page); err != nil {
		t.Fatalf("Render after bump: %v", err)
	}
	if inner.calls["about"] != 2 {
		t.Errorf("inner rendered %d times after bump, want 2", inner.calls["about"])
	}
}

func TestCachedRendererNeverCachesFailures(t *testing.T) {
	inner := &countingRenderer{fail: true}
	cached := NewCachedRenderer(inner, NewCache(NewEpoch(0)))

	page := Page{Route: &routes.Entry{Name: "broken"}}
	for i := 0; i < 2; i++ {
		if _, err := cached.Render(context.Background(), page); err == nil {
			t.Fatal("Render succeeded, want error")
		}
	}
	if inner.calls["broken"] != 2 {
		t.Errorf("inner rendered %d times, want 2 (failures must not be cached)", inner.calls["broken"])
	}
}

func TestCacheKeyIncludesParamsInOrder(t *testing.T) {
	entry := &routes.Entry{
		Name:       "shop/[category]/[item]",
		ParamNames: []string{"category", "item"},
	}
	a := Page{Route: entry, Params: map[string]string{"category": "books", "item": "go"}}
	b := Page{Route: entry, Params: map[string]string{"category": "books", "item": "rust"}}

	if a.CacheKey() == b.CacheKey() {
		t.Errorf("distinct params share key %q", a.CacheKey())
	}
	if got := a.CacheKey(); got != "shop/[category]/[item]?category=books?item=go" {
		t.Errorf("CacheKey() = %q", got)
	}
}
