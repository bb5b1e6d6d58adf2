package aggregator

import "github.com/iulianpascalau/netgazer/core"

// Sample is one retained history point of a metric
type Sample struct {
	TimestampMicro uint64
	Value          core.MetricValue
}

// sampleRing is a fixed-capacity circular buffer of samples ordered newest
// first: logical index 0 is the most recent sample. Pushing at capacity
// overwrites the oldest sample, so the ring acts as a sliding window without
// reallocating.
type sampleRing struct {
	samples []Sample
	head    int
	size    int
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{
		samples: make([]Sample, capacity),
	}
}

// push prepends a sample, evicting the oldest one when the ring is full
func (r *sampleRing) push(s Sample) {
	capacity := len(r.samples)

	r.head = (r.head - 1 + capacity) % capacity
	r.samples[r.head] = s

	if r.size < capacity {
		r.size++
	}
}

// len returns the number of retained samples
func (r *sampleRing) len() int {
	return r.size
}

// at returns the sample at logical index i, 0 being the newest
func (r *sampleRing) at(i int) Sample {
	return r.samples[(r.head+i)%len(r.samples)]
}
