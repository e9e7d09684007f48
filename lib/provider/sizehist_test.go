package provider

import "testing"

func TestSizeHistogramEmptyStats(t *testing.T) {
	h := newSizeHistogram()
	stats := h.stats()
	if stats.Count != 0 || stats.AverageLen != 0 || stats.MedianLen != 0 {
		t.Errorf("expected zero-value stats before any sample, got %+v", stats)
	}
}

func TestSizeHistogramAverage(t *testing.T) {
	h := newSizeHistogram()
	for _, size := range []int{10, 20, 30} {
		h.addSample(size)
	}

	stats := h.stats()
	if stats.Count != 3 {
		t.Errorf("expected count 3, got %d", stats.Count)
	}
	if stats.AverageLen != 20 {
		t.Errorf("expected average 20, got %d", stats.AverageLen)
	}
}

func TestSizeHistogramMedianFallsInFirstBucket(t *testing.T) {
	h := newSizeHistogram()
	h.addSample(1)
	h.addSample(2)
	h.addSample(3)

	stats := h.stats()
	if stats.MedianLen != h.boundaries[0]/2 {
		t.Errorf("expected median to fall in the first bucket (%d), got %d", h.boundaries[0]/2, stats.MedianLen)
	}
}

func TestSizeHistogramMedianBeyondLastBoundary(t *testing.T) {
	h := newSizeHistogram()
	huge := h.boundaries[len(h.boundaries)-1] + 1
	h.addSample(huge)

	stats := h.stats()
	if stats.MedianLen != h.boundaries[len(h.boundaries)-1]*2 {
		t.Errorf("expected median beyond the last boundary to clamp to %d, got %d",
			h.boundaries[len(h.boundaries)-1]*2, stats.MedianLen)
	}
}

func TestSizeHistogramConcurrentSamples(t *testing.T) {
	h := newSizeHistogram()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			for j := 0; j < 100; j++ {
				h.addSample(n + j)
			}
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if stats := h.stats(); stats.Count != 800 {
		t.Errorf("expected 800 samples recorded, got %d", stats.Count)
	}
}
