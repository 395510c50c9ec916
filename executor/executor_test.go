package executor

import (
	"sync/atomic"
	"testing"
)

func TestSubmitAllRunsEveryTask(t *testing.T) {
	p := New(4)
	defer p.Close()

	var counter int64
	tasks := make([]Task, 100)
	for i := range tasks {
		i := i
		tasks[i] = func() any {
			atomic.AddInt64(&counter, 1)
			return i
		}
	}

	results := p.SubmitAll(tasks)
	if counter != 100 {
		t.Fatalf("want 100 executions, got %d", counter)
	}
	for i, r := range results {
		if r.(int) != i {
			t.Fatalf("result[%d] = %v, want %d", i, r, i)
		}
	}
}

func TestFutureGetBlocksUntilDone(t *testing.T) {
	p := New(2)
	defer p.Close()

	f := p.Submit(func() any { return 7 })
	if got := f.Get(); got.(int) != 7 {
		t.Fatalf("got %v, want 7", got)
	}
}

func TestCloseDrainsQueuedWork(t *testing.T) {
	p := New(1)

	var counter int64
	tasks := make([]Task, 20)
	futures := make([]*Future, len(tasks))
	for i := range tasks {
		tasks[i] = func() any {
			atomic.AddInt64(&counter, 1)
			return nil
		}
		futures[i] = p.Submit(tasks[i])
	}

	p.Close()

	for _, f := range futures {
		f.Get()
	}
	if counter != 20 {
		t.Fatalf("want all 20 queued tasks drained, got %d", counter)
	}
}

func TestSubmitAfterCloseIsNoop(t *testing.T) {
	p := New(1)
	p.Close()
	if f := p.Submit(func() any { return 1 }); f != nil {
		t.Fatalf("Submit after Close should return nil, got %v", f)
	}
}

func TestDefaultWorkerCountIsPositive(t *testing.T) {
	p := New(0)
	defer p.Close()
	if p.Workers() < 1 {
		t.Fatalf("want at least 1 worker, got %d", p.Workers())
	}
}
