// lease-bench measures acquire/release and get-or-create throughput against
// the in-process store, giving a ceiling for what the lock machinery itself
// costs before network latency enters the picture.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mirkobrombin/go-lease/v1/cache"
	"github.com/mirkobrombin/go-lease/v1/lock"
	"github.com/mirkobrombin/go-lease/v1/objstore"
)

var (
	concurrency = flag.Int("c", 8, "Number of concurrent clients")
	requests    = flag.Int("n", 20000, "Total number of operations")
	mode        = flag.String("mode", "lock", "Benchmark mode: lock or getorcreate")
)

func main() {
	flag.Parse()

	log.Printf("Starting benchmark: %d operations, %d concurrency, mode %s", *requests, *concurrency, *mode)

	store := objstore.NewMemoryStore()
	ctx := context.Background()

	var op func(worker, i int) error
	switch *mode {
	case "lock":
		op = func(worker, i int) error {
			h := lock.NewExclusive(store, "bench", fmt.Sprintf("res-%d", worker), lock.WithRetries(0))
			if err := h.Acquire(ctx); err != nil {
				return err
			}
			h.Release(ctx)
			return nil
		}
	case "getorcreate":
		c := cache.New(store, "bench", cache.WithLocalCache(1<<24))
		defer c.Close()
		if _, err := c.GetOrCreate(ctx, "obj", func(context.Context) ([]byte, error) {
			return []byte("payload"), nil
		}); err != nil {
			log.Fatalf("setup fill: %v", err)
		}
		op = func(worker, i int) error {
			_, err := c.GetOrCreate(ctx, "obj", func(context.Context) ([]byte, error) {
				return []byte("payload"), nil
			})
			return err
		}
	default:
		log.Fatalf("unknown mode %q", *mode)
	}

	var wg sync.WaitGroup
	var ops int64
	var errorsCount int64

	start := time.Now()
	opsPerWorker := *requests / *concurrency

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				if err := op(worker, i); err != nil {
					atomic.AddInt64(&errorsCount, 1)
				}
				atomic.AddInt64(&ops, 1)
			}
		}(w)
	}

	wg.Wait()
	elapsed := time.Since(start)

	throughput := float64(ops) / elapsed.Seconds()
	avgLatency := elapsed.Seconds() / float64(ops) * 1e9 // ns

	log.Printf("Finished in %v", elapsed)
	log.Printf("Throughput: %.2f ops/s", throughput)
	log.Printf("Avg Latency: %.2f ns", avgLatency)
	if errorsCount > 0 {
		log.Printf("Errors: %d", errorsCount)
	}
}
