package duplex

import (
	"errors"
	"testing"
	"time"
)

func TestNewQueue_DefaultCapacity(t *testing.T) {
	q := NewQueue(0)
	if q.Cap() != defaultQueueSize {
		t.Errorf("Cap = %d, want %d", q.Cap(), defaultQueueSize)
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(3)
	for _, m := range []string{"a", "b", "c"} {
		if err := q.Put([]byte(m)); err != nil {
			t.Fatalf("Put(%s) failed: %v", m, err)
		}
	}

	if q.Len() != 3 {
		t.Errorf("Len = %d, want 3", q.Len())
	}

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Get(0)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != want {
			t.Errorf("Get = %s, want %s", got, want)
		}
	}
}

func TestQueue_PutFull(t *testing.T) {
	q := NewQueue(1)
	if err := q.Put([]byte("a")); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}

	if err := q.Put([]byte("b")); err != ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}
}

func TestQueue_GetImmediate(t *testing.T) {
	q := NewQueue(1)

	start := time.Now()
	_, err := q.Get(0)
	if err != ErrQueueEmpty {
		t.Errorf("expected ErrQueueEmpty, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Get(0) took %v", elapsed)
	}
}

func TestQueue_GetTimeout(t *testing.T) {
	q := NewQueue(1)

	start := time.Now()
	_, err := q.Get(50 * time.Millisecond)
	if err != ErrQueueEmpty {
		t.Errorf("expected ErrQueueEmpty, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Get returned after %v, before the timeout", elapsed)
	}
}

func TestQueue_GetWaitsForPut(t *testing.T) {
	q := NewQueue(1)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = q.Put([]byte("late"))
	}()

	got, err := q.Get(time.Second)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "late" {
		t.Errorf("Get = %s, want late", got)
	}
}

func TestQueue_GetNoTimeoutWakesOnShut(t *testing.T) {
	q := NewQueue(1)

	done := make(chan error, 1)
	go func() {
		_, err := q.Get(NoTimeout)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	q.shut()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueClosed) {
			t.Errorf("expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Get to return")
	}
}

func TestQueue_ShutKeepsItems(t *testing.T) {
	q := NewQueue(2)
	_ = q.Put([]byte("kept"))
	q.shut()
	q.shut()

	got, err := q.Get(NoTimeout)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "kept" {
		t.Errorf("Get = %s, want kept", got)
	}

	if _, err := q.Get(NoTimeout); err != ErrQueueClosed {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}
