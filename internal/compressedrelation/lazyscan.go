// Copyright 2025 The QLever Authors.
package compressedrelation

import (
	"context"

	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"golang.org/x/sync/errgroup"
)

// ScanRequest is one prefix scan to run against a Permutation, submitted to
// a LazyScanPool.
type ScanRequest struct {
	Permutation *Permutation
	Prefix      []valueid.Id
}

// ScanResult pairs a ScanRequest's outcome with its original index, so
// callers can line results back up with the request that produced them.
type ScanResult struct {
	Index int
	Rows  []rows.Row
	Err   error
}

// LazyScanPool bounds how many permutation scans run concurrently, and how
// many submitted-but-not-yet-running scans may queue up, per spec.md
// section 5's "thread pool bounded by two runtime parameters: queue size
// and thread count" (the lazy-index-scan-queue-size and
// lazy-index-scan-num-threads configuration parameters). A pool is
// reusable across many calls to RunAll.
type LazyScanPool struct {
	numThreads int
	queueSize  int
}

// NewLazyScanPool returns a pool that runs at most numThreads scans
// concurrently, with up to queueSize requests buffered ahead of the
// running workers.
func NewLazyScanPool(numThreads, queueSize int) *LazyScanPool {
	if numThreads < 1 {
		numThreads = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &LazyScanPool{numThreads: numThreads, queueSize: queueSize}
}

// RunAll scans every request through the pool's bounded worker/queue pair
// and returns one ScanResult per request in request order. Submission of
// the (numThreads+queueSize+1)'th request blocks until a worker frees a
// queue slot, so RunAll never holds more than numThreads+queueSize
// requests in flight at once regardless of how many reqs it is given.
func (p *LazyScanPool) RunAll(ctx context.Context, reqs []ScanRequest) ([]ScanResult, error) {
	results := make([]ScanResult, len(reqs))
	jobs := make(chan int, p.queueSize)
	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < p.numThreads; w++ {
		g.Go(func() error {
			for i := range jobs {
				req := reqs[i]
				rs, err := req.Permutation.Scan(gctx, req.Prefix)
				results[i] = ScanResult{Index: i, Rows: rs, Err: err}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for i := range reqs {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
