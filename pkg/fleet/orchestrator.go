package fleet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/poolherd/poolherd/pkg/util"
)

// DefaultWorkers is the worker pool size when the caller does not override.
const DefaultWorkers = 10

// HostFunc processes a single host to completion and returns its result.
// Implementations must never panic across the boundary; every failure is
// expressed in the HostResult.
type HostFunc func(ctx context.Context, host string, index int) HostResult

// Reporter receives streaming progress during a run.
type Reporter interface {
	// RunStart fires once before any host is dispatched.
	RunStart(total, workers, sshPort int)
	// HostDone fires as each host completes, in completion order.
	// completed counts finished hosts including this one.
	HostDone(r HostResult, completed, total int)
	// RunEnd fires after all hosts have reported.
	RunEnd(s RunSummary)
}

// Run fans hosts out across a fixed pool of workers, each running the full
// per-host sequence before taking the next host. Hosts are fully isolated:
// one host's failure or slow timeout never blocks or cancels another.
// Results stream to the reporter as they arrive.
func Run(ctx context.Context, hosts []string, workers, sshPort int, run HostFunc, rep Reporter) RunSummary {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(hosts) {
		workers = len(hosts)
	}

	rep.RunStart(len(hosts), workers, sshPort)
	start := time.Now()

	type job struct {
		host  string
		index int
	}
	jobs := make(chan job)
	results := make(chan HostResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- runIsolated(ctx, run, j.host, j.index)
			}
		}()
	}

	go func() {
		for i, h := range hosts {
			jobs <- job{host: h, index: i}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single-consumer collection: the results channel serializes concurrent
	// worker completions, no further locking needed.
	summary := RunSummary{Total: len(hosts)}
	completed := 0
	for r := range results {
		completed++
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
			summary.FailedHosts = append(summary.FailedHosts, r)
		}
		rep.HostDone(r, completed, len(hosts))
	}

	sort.Slice(summary.FailedHosts, func(i, j int) bool {
		return summary.FailedHosts[i].Index < summary.FailedHosts[j].Index
	})
	summary.Elapsed = time.Since(start)

	rep.RunEnd(summary)
	return summary
}

// runIsolated guards the worker against a panicking HostFunc so a single
// bad host cannot take down the whole run.
func runIsolated(ctx context.Context, run HostFunc, host string, index int) (r HostResult) {
	defer func() {
		if p := recover(); p != nil {
			util.WithHost(host).Errorf("host worker panicked: %v", p)
			r = HostResult{
				Host:  host,
				Index: index,
				Err:   util.NewHostError(host, &panicError{value: p}),
			}
		}
	}()
	return run(ctx, host, index)
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("internal error: %v", e.value)
}
