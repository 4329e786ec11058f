package bridge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/lib/logs"
)

// InstanceCreatorConfig configures an engine driver.
type InstanceCreatorConfig struct {
	// ContextManager resolves the context id an instance carries back to
	// its Context on every host call.
	ContextManager *ContextManager
	// CodeCacheSize bounds the number of compiled binaries kept by the driver.
	CodeCacheSize int
	Logger        logs.Logger
}

// NewInstanceCreatorFunc instances a new InstanceCreator.
type NewInstanceCreatorFunc func(config *InstanceCreatorConfig) (InstanceCreator, error)

// InstanceCreator compiles binaries and creates instances running them.
type InstanceCreator interface {
	// CreateInstance binds binary to ctx. The instance reaches the host
	// through ctx.Session.
	CreateInstance(ctx *Context, binary []byte) (Instance, error)
}

// Instance is one execution of a binary.
type Instance interface {
	// Exec runs the entry point to completion. Errors should wrap one of the
	// contract error kinds; anything else is reported as a vm trap.
	Exec() (*contract.CallResponse, error)
	// FuelUsed is the fuel the engine metered for its own instructions,
	// excluding what host calls charged directly.
	FuelUsed() uint64
	Release()
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]NewInstanceCreatorFunc)
)

// Register makes an engine driver available by name. It panics on nil or
// duplicated drivers.
func Register(name string, f NewInstanceCreatorFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if f == nil {
		panic("bridge: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("bridge: Register called twice for driver " + name)
	}
	drivers[name] = f
}

// Drivers lists the registered engine drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open instances the driver registered as name.
func Open(name string, config *InstanceCreatorConfig) (InstanceCreator, error) {
	driversMu.RLock()
	f, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine driver %q not found, forgotten import?", name)
	}
	return f(config)
}
