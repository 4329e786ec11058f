// 统一管理引擎运行环境
package engines

import (
	"fmt"

	xconf "github.com/alkanes/alkanescore/kernel/common/xconfig"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
	"github.com/alkanes/alkanescore/lib/logs"
	"github.com/alkanes/alkanescore/lib/storage/kvdb"
)

// EngineEnv holds what an engine is built from.
type EngineEnv struct {
	Conf *xconf.AlkanesConf
	// DB holds contract state and, with tracing on, the traces.
	DB     kvdb.Database
	Source MessageSource
	// Sink overrides the trace sink over DB.
	Sink   trace.Sink
	Logger logs.Logger
}

// Check reports the first missing component.
func (t *EngineEnv) Check() error {
	switch {
	case t.Conf == nil:
		return fmt.Errorf("engine env: config unset")
	case t.DB == nil:
		return fmt.Errorf("engine env: database unset")
	case t.Source == nil:
		return fmt.Errorf("engine env: message source unset")
	}
	return t.Conf.Validate()
}

// OpenLog returns Logger when set, otherwise opens the logger described by
// the Conf.LogConf file. Without either, logs are dropped.
func (t *EngineEnv) OpenLog() (logs.Logger, error) {
	if t.Logger != nil {
		return t.Logger, nil
	}
	if t.Conf == nil || t.Conf.LogConf == "" {
		return logs.NewDiscardLogger(), nil
	}
	lc, err := logs.LoadLogConf(t.Conf.LogConf)
	if err != nil {
		return nil, err
	}
	xlog, err := logs.OpenLogger(lc)
	if err != nil {
		return nil, fmt.Errorf("open engine logger failed.err:%v", err)
	}
	t.Logger = xlog
	return xlog, nil
}

// GetLog never returns nil.
func (t *EngineEnv) GetLog() logs.Logger {
	if t.Logger == nil {
		return logs.NewDiscardLogger()
	}
	return t.Logger
}
