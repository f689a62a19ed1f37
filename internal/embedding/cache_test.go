package embedding

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c := NewCache(2)
	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache should miss")
	}
	c.Set("a", []float32{1})
	got, ok := c.Get("a")
	if !ok || !reflect.DeepEqual(got, []float32{1}) {
		t.Errorf("Get(a) = %v, %v", got, ok)
	}
}

func TestCache_EvictsOldest(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("entry b should survive")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCache_GetRefreshesRecency(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Get("a")
	c.Set("c", []float32{3})
	if _, ok := c.Get("a"); !ok {
		t.Error("recently read entry should survive eviction")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
}

func TestCache_SetExistingUpdates(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("a", []float32{9})
	got, _ := c.Get("a")
	if !reflect.DeepEqual(got, []float32{9}) {
		t.Errorf("Get(a) = %v, want [9]", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			for j := 0; j < 100; j++ {
				c.Set(key, []float32{float32(n)})
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 10 {
		t.Errorf("Len() = %d, want 10", c.Len())
	}
}

func TestCachedEmbedder_CachesResults(t *testing.T) {
	inner := &countingEmbedder{inner: NewSimpleEmbedder(32)}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := e.Embed(ctx, "repeat me")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embed(ctx, "repeat me")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached embedding differs from original")
	}
	if inner.calls != 1 {
		t.Errorf("inner embedder called %d times, want 1", inner.calls)
	}
}

func TestCachedEmbedder_ZeroCapacityPassThrough(t *testing.T) {
	inner := &countingEmbedder{inner: NewSimpleEmbedder(32)}
	e := NewCachedEmbedder(inner, 0)
	ctx := context.Background()
	e.Embed(ctx, "x")
	e.Embed(ctx, "x")
	if inner.calls != 2 {
		t.Errorf("pass-through should call inner every time, got %d calls", inner.calls)
	}
}

func TestCachedEmbedder_BatchUsesCache(t *testing.T) {
	inner := &countingEmbedder{inner: NewSimpleEmbedder(32)}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	if _, err := e.EmbedBatch(ctx, []string{"a", "b", "a"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("inner embedder called %d times, want 2", inner.calls)
	}
}

// countingEmbedder counts delegated Embed calls.
type countingEmbedder struct {
	inner Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		emb, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *countingEmbedder) Close() error    { return c.inner.Close() }
