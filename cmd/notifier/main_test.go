package main

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	t.Parallel()

	if _, err := newScheduler("not a cron spec", func() {}); err == nil {
		t.Fatal("newScheduler() accepted a bogus expression")
	}
}

// A batch that outlives the schedule interval must not be joined by a second
// one; ticks fired mid-batch are dropped, not queued up behind it.
func TestSchedulerSkipsTicksWhileBatchRuns(t *testing.T) {
	t.Parallel()

	var active, maxActive, runs int64
	scheduler, err := newScheduler("@every 1s", func() {
		cur := atomic.AddInt64(&active, 1)
		for {
			seen := atomic.LoadInt64(&maxActive)
			if cur <= seen || atomic.CompareAndSwapInt64(&maxActive, seen, cur) {
				break
			}
		}
		atomic.AddInt64(&runs, 1)
		time.Sleep(2200 * time.Millisecond)
		atomic.AddInt64(&active, -1)
	})
	if err != nil {
		t.Fatalf("newScheduler() error = %v", err)
	}

	scheduler.Start()
	// Long enough for three ticks, two of which land mid-batch.
	time.Sleep(3500 * time.Millisecond)
	<-scheduler.Stop().Done()

	if got := atomic.LoadInt64(&runs); got < 1 {
		t.Fatal("batch never ran")
	}
	if got := atomic.LoadInt64(&maxActive); got != 1 {
		t.Fatalf("max concurrent batches = %d, want 1", got)
	}
}
