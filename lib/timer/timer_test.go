package timer

import (
	"strings"
	"testing"
)

func TestXTimer(t *testing.T) {
	tm := NewXTimer()
	tm.Mark("decode")
	tm.Mark("execute")

	points := tm.Points()
	if len(points) != 2 || points[0].Tag != "decode" || points[1].Tag != "execute" {
		t.Fatalf("unexpected points %+v", points)
	}
	out := tm.Print()
	if !strings.HasPrefix(out, "decode:") || !strings.Contains(out, ",total:") {
		t.Errorf("unexpected print %s", out)
	}
}
