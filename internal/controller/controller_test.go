package controller

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kranzdev/streampipe/internal/phase"
	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
)

func sleepyUpperPhase(sleep func() time.Duration) *phase.Phase[map[string]string] {
	leaf := step.NewLeaf[map[string]string]("sleep_upper", "SleepUpper", step.DefaultOptions(), func(ctx context.Context, pkg *trace.Package[map[string]string], st *trace.StepTrace) error {
		time.Sleep(sleep())
		pkg.Data["key"] = pkg.Data["key"] + "X"
		st.Message = "done"
		return nil
	})
	return phase.New[map[string]string]("p1", leaf)
}

func TestControllerUnknownInstance(t *testing.T) {
	c := New[map[string]string]("c1", trace.NotParallel, 0, nil, nil, nil)
	pkg := trace.NewPackage("pipe", "missing", map[string]string{})
	err := c.Submit(context.Background(), pkg, "missing", func(Outcome, *trace.Package[map[string]string]) {})
	require.Error(t, err)
}

func TestNotParallelSubmitReturnsBeforeCompletion(t *testing.T) {
	leaf := step.NewLeaf[map[string]string]("slow", "Slow", step.DefaultOptions(), func(ctx context.Context, pkg *trace.Package[map[string]string], st *trace.StepTrace) error {
		time.Sleep(50 * time.Millisecond)
		st.Message = "done"
		return nil
	})
	p := phase.New[map[string]string]("p1", leaf)
	c := New[map[string]string]("c1", trace.NotParallel, 4, []*phase.Phase[map[string]string]{p}, nil, nil)
	c.RegisterInstance("inst-1")

	doneCh := make(chan Outcome, 1)
	pkg := trace.NewPackage("pipe", "inst-1", map[string]string{})

	start := time.Now()
	err := c.Submit(context.Background(), pkg, "inst-1", func(outcome Outcome, _ *trace.Package[map[string]string]) {
		doneCh <- outcome
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond, "Submit must return before the controller run completes")

	select {
	case outcome := <-doneCh:
		assert.Equal(t, OutcomeSuccess, outcome)
	case <-time.After(time.Second):
		t.Fatal("done callback never fired")
	}
}

func TestNotParallelSerializesSubmissions(t *testing.T) {
	var concurrent int32
	var maxConcurrent int32
	var mu sync.Mutex

	leaf := step.NewLeaf[map[string]string]("track", "Track", step.DefaultOptions(), func(ctx context.Context, pkg *trace.Package[map[string]string], st *trace.StepTrace) error {
		mu.Lock()
		concurrent++
		if concurrent > maxConcurrent {
			maxConcurrent = concurrent
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		concurrent--
		mu.Unlock()
		return nil
	})
	p := phase.New[map[string]string]("p1", leaf)
	c := New[map[string]string]("c1", trace.NotParallel, 0, []*phase.Phase[map[string]string]{p}, nil, nil)
	c.RegisterInstance("inst-1")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		pkg := trace.NewPackage("pipe", "inst-1", map[string]string{})
		go func() {
			_ = c.Submit(context.Background(), pkg, "inst-1", func(Outcome, *trace.Package[map[string]string]) { wg.Done() })
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, maxConcurrent, int32(1))
}

func TestOrderBySequenceDeliversInSubmissionOrder(t *testing.T) {
	p := sleepyUpperPhase(func() time.Duration {
		return time.Duration(rand.Intn(20)) * time.Millisecond
	})
	c := New[map[string]string]("c1", trace.OrderBySequence, 4, []*phase.Phase[map[string]string]{p}, nil, nil)
	c.RegisterInstance("inst-1")

	const n = 10
	var mu sync.Mutex
	var delivered []int
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		pkg := trace.NewPackage("pipe", "inst-1", map[string]string{"key": "v"})
		idx := i
		err := c.Submit(context.Background(), pkg, "inst-1", func(outcome Outcome, pkg *trace.Package[map[string]string]) {
			mu.Lock()
			delivered = append(delivered, idx)
			mu.Unlock()
			wg.Done()
		})
		require.NoError(t, err)
	}
	wg.Wait()

	expected := make([]int, n)
	for i := range expected {
		expected[i] = i
	}
	assert.Equal(t, expected, delivered)
}

func TestFirstWinsDeliversExactlyOncePerSubmission(t *testing.T) {
	p := sleepyUpperPhase(func() time.Duration {
		return time.Duration(rand.Intn(15)) * time.Millisecond
	})
	c := New[map[string]string]("c1", trace.FirstWins, 2, []*phase.Phase[map[string]string]{p}, nil, nil)
	c.RegisterInstance("inst-1")

	const n = 10
	var mu sync.Mutex
	var outcomes []Outcome
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		pkg := trace.NewPackage("pipe", "inst-1", map[string]string{"key": "v"})
		err := c.Submit(context.Background(), pkg, "inst-1", func(outcome Outcome, pkg *trace.Package[map[string]string]) {
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			wg.Done()
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Len(t, outcomes, n)
}

func TestNoOrderDeliversAllSubmissions(t *testing.T) {
	p := sleepyUpperPhase(func() time.Duration { return time.Millisecond })
	c := New[map[string]string]("c1", trace.NoOrder, 3, []*phase.Phase[map[string]string]{p}, nil, nil)
	c.RegisterInstance("inst-1")

	const n = 6
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		pkg := trace.NewPackage("pipe", "inst-1", map[string]string{"key": "v"})
		err := c.Submit(context.Background(), pkg, "inst-1", func(Outcome, *trace.Package[map[string]string]) {
			wg.Done()
		})
		require.NoError(t, err)
	}
	wg.Wait()
}
