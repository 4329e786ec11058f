package logs

import (
	"fmt"
	"os"
	"sync"

	"github.com/alkanes/alkanescore/lib/utils"
)

// Reserve common key
const (
	CommFieldLogId = "log_id"
	CommFieldPid   = "pid"
	CommFieldCall  = "call"
)

const (
	DefaultCallDepth = 4
)

// 底层日志库约束接口
type LogDriver interface {
	Error(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
}

// Logger is what the indexer logs through. Common fields go on every record,
// info fields only on Info records.
type Logger interface {
	GetLogId() string
	SetCommField(key string, value interface{})
	SetInfoField(key string, value interface{})
	Error(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
}

// LogFitter stamps log id, caller and pid on every record before handing it
// to the driver.
type LogFitter struct {
	logger     LogDriver
	logId      string
	pid        int
	callDepth  int
	mu         sync.RWMutex
	commFields []interface{}
	infoFields []interface{}
}

func NewLogger(logger LogDriver, logId string) (*LogFitter, error) {
	if logger == nil {
		return nil, fmt.Errorf("new logger param error")
	}
	if logId == "" {
		logId = utils.GenLogId()
	}

	return &LogFitter{
		logger:    logger,
		logId:     logId,
		pid:       os.Getpid(),
		callDepth: DefaultCallDepth,
	}, nil
}

// Fork shares the driver and common fields under a new log id.
func (t *LogFitter) Fork(logId string) *LogFitter {
	lf, _ := NewLogger(t.logger, logId)
	t.mu.RLock()
	lf.commFields = append(lf.commFields, t.commFields...)
	t.mu.RUnlock()
	return lf
}

func (t *LogFitter) GetLogId() string {
	return t.logId
}

func (t *LogFitter) SetCommField(key string, value interface{}) {
	if key == "" || value == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commFields = append(t.commFields, key, value)
}

func (t *LogFitter) SetInfoField(key string, value interface{}) {
	if key == "" || value == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.infoFields = append(t.infoFields, key, value)
}

func (t *LogFitter) Error(msg string, ctx ...interface{}) {
	t.logger.Error(msg, t.fields(false, ctx)...)
}

func (t *LogFitter) Warn(msg string, ctx ...interface{}) {
	t.logger.Warn(msg, t.fields(false, ctx)...)
}

func (t *LogFitter) Info(msg string, ctx ...interface{}) {
	t.logger.Info(msg, t.fields(true, ctx)...)
}

func (t *LogFitter) Trace(msg string, ctx ...interface{}) {
	t.logger.Trace(msg, t.fields(false, ctx)...)
}

func (t *LogFitter) Debug(msg string, ctx ...interface{}) {
	t.logger.Debug(msg, t.fields(false, ctx)...)
}

func (t *LogFitter) fields(withInfo bool, ctx []interface{}) []interface{} {
	if len(ctx)%2 != 0 {
		last := ctx[len(ctx)-1]
		ctx = append(ctx[:len(ctx)-1:len(ctx)-1], "unknow", last)
	}

	fileLine, _ := utils.GetFuncCall(t.callDepth)
	// 保持log_id是第一个写入，方便替换
	out := []interface{}{CommFieldLogId, t.logId, CommFieldCall, fileLine, CommFieldPid, t.pid}
	if len(ctx) > 1 && fmt.Sprintf("%v", ctx[0]) == CommFieldLogId {
		out[1] = ctx[1]
		ctx = ctx[2:]
	}

	t.mu.RLock()
	out = append(out, t.commFields...)
	if withInfo {
		out = append(out, t.infoFields...)
	}
	t.mu.RUnlock()

	return append(out, ctx...)
}
