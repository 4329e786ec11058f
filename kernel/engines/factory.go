package engines

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrEngineNotExist = errors.New("engine not registered")
	ErrEngineInit     = errors.New("engine init failed")
)

// 创建engine实例方法，每次调用返回未初始化的新实例
type NewBCEngineFunc func() BCEngine

var (
	engineMu sync.RWMutex
	engines  = make(map[string]NewBCEngineFunc)
)

// Register makes an engine available by name. Engines call it from init.
func Register(name string, f NewBCEngineFunc) {
	engineMu.Lock()
	defer engineMu.Unlock()

	if f == nil {
		panic("engines: Register new func is nil")
	}
	if _, dup := engines[name]; dup {
		panic("engines: Register called twice for engine " + name)
	}
	engines[name] = f
}

// Engines lists the registered engine names in order.
func Engines() []string {
	engineMu.RLock()
	defer engineMu.RUnlock()
	list := make([]string, 0, len(engines))
	for name := range engines {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

func lookupEngine(name string) (NewBCEngineFunc, bool) {
	engineMu.RLock()
	defer engineMu.RUnlock()
	f, ok := engines[name]
	return f, ok
}

// 工厂方法：校验环境，按名称创建并初始化区块处理引擎
// 引擎注册通过init实现，由应用方选择具体要使用的引擎
func CreateBCEngine(name string, env *EngineEnv) (BCEngine, error) {
	if name == "" || env == nil {
		return nil, errors.New("create bc engine failed because some param unset")
	}
	if err := env.Check(); err != nil {
		return nil, err
	}

	newFunc, ok := lookupEngine(name)
	if !ok {
		return nil, errors.Wrapf(ErrEngineNotExist, "name:%s registered:%v", name, Engines())
	}
	engine := newFunc()
	if err := engine.Init(env); err != nil {
		// 释放初始化过程中已申请的资源
		engine.Exit()
		return nil, errors.Wrapf(ErrEngineInit, "name:%s err:%v", name, err)
	}
	return engine, nil
}
