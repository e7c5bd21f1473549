package queue

import (
	"sync"
	"testing"
)

type delivery struct {
	ID     string
	Target uint16
}

func TestQueue_New(t *testing.T) {
	q := New[delivery]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
	if _, ok := q.TryPop(); ok {
		t.Error("expected TryPop on empty queue to fail")
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := New[delivery]()
	q.Push(delivery{ID: "a", Target: 1})
	q.Push(delivery{ID: "b", Target: 2}, delivery{ID: "c", Target: 3})

	if q.Len() != 3 {
		t.Fatalf("expected length 3, got %d", q.Len())
	}
	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.TryPop()
		if !ok {
			t.Fatalf("expected item %s", want)
		}
		if got.ID != want {
			t.Errorf("expected %s, got %s", want, got.ID)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New[delivery]()
	q.Push(delivery{ID: "a"}, delivery{ID: "b"})

	items := q.Drain()
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
		t.Errorf("unexpected drain result %+v", items)
	}
	if q.Len() != 0 {
		t.Error("expected queue to be empty after drain")
	}

	// drained slice is not shared with later pushes
	q.Push(delivery{ID: "c"})
	if items[0].ID != "a" {
		t.Error("drained items changed after push")
	}
	if got := q.Drain(); len(got) != 1 {
		t.Errorf("expected 1 item, got %d", len(got))
	}
}

func TestQueue_ConcurrentPushPop(t *testing.T) {
	q := New[int]()
	const producers, perProducer = 8, 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base + i)
			}
		}(p * perProducer)
	}

	seen := make(map[int]bool)
	var mu sync.Mutex
	var consumers sync.WaitGroup
	done := make(chan struct{})
	for c := 0; c < 4; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				if v, ok := q.TryPop(); ok {
					mu.Lock()
					seen[v] = true
					mu.Unlock()
					continue
				}
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	close(done)
	consumers.Wait()
	for _, v := range q.Drain() {
		seen[v] = true
	}

	if len(seen) != producers*perProducer {
		t.Errorf("expected %d distinct items, got %d", producers*perProducer, len(seen))
	}
}
