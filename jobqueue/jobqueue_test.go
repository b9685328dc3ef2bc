package jobqueue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestNew_InvalidParam(t *testing.T) {
	if _, err := New(0); err != ErrInvalidParam {
		t.Errorf("New(0) err = %v, want ErrInvalidParam", err)
	}
	if _, err := New(-3); err != ErrInvalidParam {
		t.Errorf("New(-3) err = %v, want ErrInvalidParam", err)
	}
}

func TestInitJob_InvalidParam(t *testing.T) {
	p, _ := New(1)
	defer p.Destroy()
	var job Job

	if err := InitJob(nil, &job, nil, nil); err != ErrInvalidParam {
		t.Errorf("nil pool err = %v, want ErrInvalidParam", err)
	}
	if err := InitJob(p, nil, nil, nil); err != ErrInvalidParam {
		t.Errorf("nil job err = %v, want ErrInvalidParam", err)
	}
	if err := InitJob(p, &job, nil, nil); err != nil {
		t.Errorf("nil callback should be allowed, err = %v", err)
	}
}

func TestSchedule_InvalidParam(t *testing.T) {
	p, _ := New(1)
	defer p.Destroy()
	other, _ := New(1)
	defer other.Destroy()

	if err := p.Schedule(nil); err != ErrInvalidParam {
		t.Errorf("nil job err = %v, want ErrInvalidParam", err)
	}

	var foreign Job
	InitJob(other, &foreign, nil, nil)
	if err := p.Schedule(&foreign); err != ErrInvalidParam {
		t.Errorf("foreign job err = %v, want ErrInvalidParam", err)
	}
}

func TestSchedule_FullWhenWorkersBlocked(t *testing.T) {
	p, _ := New(4)
	defer p.Destroy()
	p.SetAttr(Attr{MinThreads: 1, MaxThreads: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	var blocker Job
	InitJob(p, &blocker, func(ctx any) {
		close(started)
		<-release
	}, nil)
	if err := p.Schedule(&blocker); err != nil {
		t.Fatalf("Schedule blocker failed: %v", err)
	}
	<-started

	jobs := make([]Job, 5)
	for i := 0; i < 4; i++ {
		InitJob(p, &jobs[i], nil, nil)
		if err := p.Schedule(&jobs[i]); err != nil {
			t.Fatalf("Schedule %d failed: %v", i, err)
		}
	}
	if got := p.Count(); got != 4 {
		t.Errorf("Count = %d, want 4", got)
	}

	InitJob(p, &jobs[4], nil, nil)
	if err := p.Schedule(&jobs[4]); err != ErrFull {
		t.Errorf("err = %v, want ErrFull", err)
	}

	close(release)
	waitFor(t, func() bool { return p.Count() == 0 }, "queue drain")
}

func TestSchedule_NoWorkersPossible(t *testing.T) {
	p, _ := New(1)
	defer p.Destroy()
	if err := p.SetAttr(Attr{MinThreads: 0, MaxThreads: 0}); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}

	var job Job
	InitJob(p, &job, func(ctx any) {}, nil)
	if err := p.Schedule(&job); err != ErrError {
		t.Errorf("err = %v, want ErrError", err)
	}
	if p.Count() != 0 {
		t.Errorf("failed Schedule must not enqueue, Count = %d", p.Count())
	}
}

// Ten no-op jobs through a 1..3 worker pool, every
// callback exactly once, queue decays to zero.
func TestFanOut(t *testing.T) {
	p, _ := New(10)
	defer p.Destroy()
	p.SetAttr(Attr{MinThreads: 1, MaxThreads: 3})

	var calls atomic.Int32
	jobs := make([]Job, 10)
	for i := range jobs {
		InitJob(p, &jobs[i], func(ctx any) { calls.Add(1) }, nil)
		if err := p.Schedule(&jobs[i]); err != nil {
			t.Fatalf("Schedule %d failed: %v", i, err)
		}
	}

	waitFor(t, func() bool { return calls.Load() == 10 }, "all callbacks")
	waitFor(t, func() bool { return p.Count() == 0 }, "count decay")
}

func TestFIFO_SingleWorker(t *testing.T) {
	p, _ := New(16)
	defer p.Destroy()
	p.SetAttr(Attr{MinThreads: 1, MaxThreads: 1})

	var mu sync.Mutex
	var order []int
	gate := make(chan struct{})

	var blocker Job
	InitJob(p, &blocker, func(ctx any) { <-gate }, nil)
	p.Schedule(&blocker)

	jobs := make([]Job, 8)
	for i := range jobs {
		i := i
		InitJob(p, &jobs[i], func(ctx any) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}, nil)
		p.Schedule(&jobs[i])
	}
	close(gate)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 8
	}, "all jobs")

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestDeschedule(t *testing.T) {
	p, _ := New(4)
	defer p.Destroy()
	p.SetAttr(Attr{MinThreads: 1, MaxThreads: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	var blocker Job
	InitJob(p, &blocker, func(ctx any) {
		close(started)
		<-release
	}, nil)
	p.Schedule(&blocker)
	<-started

	ran := false
	var victim Job
	InitJob(p, &victim, func(ctx any) { ran = true }, nil)
	p.Schedule(&victim)
	if p.Count() != 1 {
		t.Fatalf("Count = %d, want 1", p.Count())
	}

	if err := p.Deschedule(&victim); err != nil {
		t.Fatalf("Deschedule failed: %v", err)
	}
	if p.Count() != 0 {
		t.Errorf("Count = %d, want 0", p.Count())
	}
	// idempotent on absent jobs
	if err := p.Deschedule(&victim); err != nil {
		t.Errorf("second Deschedule = %v, want nil", err)
	}

	close(release)
	time.Sleep(50 * time.Millisecond)
	if ran {
		t.Error("descheduled job must not run")
	}
}

func TestDestroy_DropsPending(t *testing.T) {
	p, _ := New(8)
	p.SetAttr(Attr{MinThreads: 1, MaxThreads: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	var blocker Job
	InitJob(p, &blocker, func(ctx any) {
		close(started)
		<-release
	}, nil)
	p.Schedule(&blocker)
	<-started

	var ran atomic.Int32
	jobs := make([]Job, 4)
	for i := range jobs {
		InitJob(p, &jobs[i], func(ctx any) { ran.Add(1) }, nil)
		p.Schedule(&jobs[i])
	}

	// release the in-flight callback only after Destroy has marked the
	// pool dead, so the pending jobs must all be dropped
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	if err := p.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	if n := ran.Load(); n != 0 {
		t.Errorf("%d pending jobs ran after Destroy", n)
	}

	if err := p.Schedule(&jobs[0]); err != ErrError {
		t.Errorf("Schedule after Destroy = %v, want ErrError", err)
	}
	if err := p.Destroy(); err != ErrError {
		t.Errorf("second Destroy = %v, want ErrError", err)
	}
}

func TestSetAttr(t *testing.T) {
	p, _ := New(2)
	defer p.Destroy()

	if err := p.SetAttr(Attr{MinThreads: 2, MaxThreads: 1}); err != ErrInvalidParam {
		t.Errorf("min>max err = %v, want ErrInvalidParam", err)
	}
	if err := p.SetAttr(Attr{MinThreads: -1, MaxThreads: 1}); err != ErrInvalidParam {
		t.Errorf("negative min err = %v, want ErrInvalidParam", err)
	}

	var job Job
	InitJob(p, &job, nil, nil)
	p.Schedule(&job)
	if err := p.SetAttr(Attr{MinThreads: 1, MaxThreads: 2}); err != ErrError {
		t.Errorf("late SetAttr = %v, want ErrError", err)
	}
}

func TestElasticGrowth(t *testing.T) {
	p, _ := New(8)
	defer p.Destroy()
	p.SetAttr(Attr{MinThreads: 1, MaxThreads: 3})

	var running atomic.Int32
	var peak atomic.Int32
	release := make(chan struct{})

	jobs := make([]Job, 6)
	for i := range jobs {
		InitJob(p, &jobs[i], func(ctx any) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		}, nil)
		if err := p.Schedule(&jobs[i]); err != nil {
			t.Fatalf("Schedule %d failed: %v", i, err)
		}
	}

	waitFor(t, func() bool { return running.Load() == 3 }, "pool growth to max")
	if peak.Load() > 3 {
		t.Errorf("peak concurrency %d exceeds MaxThreads", peak.Load())
	}
	close(release)
	waitFor(t, func() bool { return p.Count() == 0 }, "drain")
}

func TestShrinkToMin(t *testing.T) {
	p, _ := New(8)
	defer p.Destroy()
	p.idleGrace = 5 * time.Millisecond
	p.SetAttr(Attr{MinThreads: 1, MaxThreads: 4})

	var wg sync.WaitGroup
	jobs := make([]Job, 8)
	for i := range jobs {
		wg.Add(1)
		InitJob(p, &jobs[i], func(ctx any) {
			defer wg.Done()
			time.Sleep(5 * time.Millisecond)
		}, nil)
		p.Schedule(&jobs[i])
	}
	wg.Wait()

	waitFor(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.workers == 1
	}, "shrink to MinThreads")
}

func TestStringifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{ErrFull, "no room for a new job"},
		{ErrInvalidParam, "invalid parameters"},
		{ErrError, "unknown error"},
	}
	for _, tt := range tests {
		if got := StringifyError(tt.err); got != tt.want {
			t.Errorf("StringifyError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
