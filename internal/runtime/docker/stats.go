package docker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
)

const samplerInterval = 100 * time.Millisecond

// memorySampler polls one-shot container stats while a program runs and
// records the peak memory usage it observed. The cgroup v2 API exposes no
// max-usage counter through Docker, so sampling is the portable signal;
// OOM kills are additionally detected via container inspect.
type memorySampler struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	max int64
}

func (c *containerEngine) startMemorySampler(containerID string) *memorySampler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &memorySampler{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(samplerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			stats, err := c.cli.ContainerStatsOneShot(ctx, containerID)
			if err != nil {
				// The container may already be gone; keep sampling until stopped.
				continue
			}

			var snapshot types.StatsJSON
			decodeErr := json.NewDecoder(stats.Body).Decode(&snapshot)
			_ = stats.Body.Close()
			if decodeErr != nil {
				continue
			}

			usage := snapshot.MemoryStats.Usage
			if snapshot.MemoryStats.MaxUsage > usage {
				usage = snapshot.MemoryStats.MaxUsage
			}
			s.observe(int64(usage))
		}
	}()

	return s
}

func (s *memorySampler) observe(usage int64) {
	s.mu.Lock()
	if usage > s.max {
		s.max = usage
	}
	s.mu.Unlock()
}

// stop halts sampling and waits for the goroutine. Safe to call more than once.
func (s *memorySampler) stop() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *memorySampler) peak() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.max
}
