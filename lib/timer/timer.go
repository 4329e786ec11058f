package timer

import (
	"fmt"
	"strings"
	"time"
)

// MarkPoint is the time spent between two marks.
type MarkPoint struct {
	Tag   string
	Delta time.Duration
}

// XTimer records named stages of one unit of work.
type XTimer struct {
	born   time.Time
	latest time.Time
	points []MarkPoint
}

// NewXTimer starts a timer now.
func NewXTimer() *XTimer {
	now := time.Now()
	return &XTimer{
		born:   now,
		latest: now,
	}
}

// Mark closes the current stage under tag.
func (timer *XTimer) Mark(tag string) {
	now := time.Now()
	timer.points = append(timer.points, MarkPoint{Tag: tag, Delta: now.Sub(timer.latest)})
	timer.latest = now
}

// Points returns the marked stages in order.
func (timer *XTimer) Points() []MarkPoint {
	return append([]MarkPoint(nil), timer.points...)
}

// Elapsed is the time since the timer started.
func (timer *XTimer) Elapsed() time.Duration {
	return time.Since(timer.born)
}

// Print renders "tag:1.20ms,...,total:3.40ms".
func (timer *XTimer) Print() string {
	msg := make([]string, 0, len(timer.points)+1)
	for _, point := range timer.points {
		msg = append(msg, fmt.Sprintf("%s:%.2fms", point.Tag, ms(point.Delta)))
	}
	msg = append(msg, fmt.Sprintf("total:%.2fms", ms(timer.Elapsed())))
	return strings.Join(msg, ",")
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
