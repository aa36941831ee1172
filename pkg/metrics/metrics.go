package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const maxSamples = 256

// Collector is an in-process metrics sink exposed on /metrics. Counters,
// latencies and sizes cover the storage, access-gate and recovery paths.
type Collector struct {
	mu        sync.RWMutex
	counters  map[string]map[string]int64
	latencies map[string][]time.Duration
	sizes     map[string][]float64
}

func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]map[string]int64),
		latencies: make(map[string][]time.Duration),
		sizes:     make(map[string][]float64),
	}
}

func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return "default"
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+labels[k])
	}
	return strings.Join(parts, ",")
}

func (c *Collector) IncrementCounter(name string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if _, ok := c.counters[name]; !ok {
		c.counters[name] = make(map[string]int64)
	}
	c.counters[name][key]++
}

func (c *Collector) ObserveLatency(name string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	samples := append(c.latencies[name], d)
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}
	c.latencies[name] = samples
}

func (c *Collector) ObserveSize(name string, size float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	samples := append(c.sizes[name], size)
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}
	c.sizes[name] = samples
}

func (c *Collector) GetCounters() map[string]map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]int64, len(c.counters))
	for name, byLabel := range c.counters {
		out[name] = make(map[string]int64, len(byLabel))
		for label, v := range byLabel {
			out[name][label] = v
		}
	}
	return out
}

func (c *Collector) GetLatencies() map[string]map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]float64)
	for name, samples := range c.latencies {
		if len(samples) == 0 {
			continue
		}
		var sum, max time.Duration
		for _, d := range samples {
			sum += d
			if d > max {
				max = d
			}
		}
		out[name] = map[string]float64{
			"avg_ms": float64(sum) / float64(len(samples)) / float64(time.Millisecond),
			"max_ms": float64(max) / float64(time.Millisecond),
		}
	}
	return out
}

func (c *Collector) GetSizes() map[string]map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]float64)
	for name, samples := range c.sizes {
		if len(samples) == 0 {
			continue
		}
		var sum, max float64
		for _, v := range samples {
			sum += v
			if v > max {
				max = v
			}
		}
		out[name] = map[string]float64{
			"avg_bytes": sum / float64(len(samples)),
			"max_bytes": max,
		}
	}
	return out
}
