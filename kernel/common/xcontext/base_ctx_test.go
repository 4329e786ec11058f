package xcontext

import (
	"context"
	"testing"

	"github.com/alkanes/alkanescore/lib/logs"
)

func TestNewBaseCtx(t *testing.T) {
	if _, err := NewBaseCtx(nil, nil); err == nil {
		t.Errorf("missing logger should fail")
	}

	parent, cancel := context.WithCancel(context.Background())
	ctx, err := NewBaseCtx(parent, logs.NewDiscardLogger())
	if err != nil {
		t.Fatalf("new base ctx failed.err:%v", err)
	}
	if ctx.GetTimer() == nil || ctx.GetLog() == nil {
		t.Errorf("timer and logger should be set")
	}
	cancel()
	<-ctx.Done()
	if ctx.Err() != context.Canceled {
		t.Errorf("cancel should propagate, got %v", ctx.Err())
	}
}
