// 定义公共上下文结构，明确定义上下文结构，方便代码阅读
package xcontext

import (
	"context"
	"fmt"

	"github.com/alkanes/alkanescore/lib/logs"
	"github.com/alkanes/alkanescore/lib/timer"
)

type XContext interface {
	context.Context
	GetLog() logs.Logger
	GetTimer() *timer.XTimer
}

// BaseCtx carries the logger and stage timer of one unit of work (a block or
// a message) alongside the usual cancellation.
type BaseCtx struct {
	context.Context
	XLog  logs.Logger
	Timer *timer.XTimer
}

var _ XContext = (*BaseCtx)(nil)

// NewBaseCtx derives from parent; a nil parent means context.Background.
func NewBaseCtx(parent context.Context, xlog logs.Logger) (*BaseCtx, error) {
	if xlog == nil {
		return nil, fmt.Errorf("create base context failed because logger is missing")
	}
	if parent == nil {
		parent = context.Background()
	}
	return &BaseCtx{
		Context: parent,
		XLog:    xlog,
		Timer:   timer.NewXTimer(),
	}, nil
}

func (t *BaseCtx) GetLog() logs.Logger {
	return t.XLog
}

func (t *BaseCtx) GetTimer() *timer.XTimer {
	return t.Timer
}
