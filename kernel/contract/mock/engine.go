// Package mock provides stand-ins for the engine and the trace sink so the
// call machinery can be exercised without compiling wasm.
package mock

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/bridge"
)

// DriverName is the engine driver the Default engine registers as.
const DriverName = "mock"

const binaryPrefix = "mock:"

// Program is a contract written in Go.
type Program func(env *Env) (*contract.CallResponse, error)

// Env is what a Program sees: the host session plus a fuel meter standing in
// for instruction metering.
type Env struct {
	*bridge.Session
	used uint64
}

// Burn meters n fuel as if the engine had executed instructions.
func (e *Env) Burn(n uint64) {
	e.used += n
}

// Used is the fuel metered so far.
func (e *Env) Used() uint64 {
	return e.used
}

// Call syncs the metered fuel before handing over, as engine host calls do.
func (e *Env) Call(kind contract.CallKind, cp *contract.Cellpack, transfers []contract.RuneTransfer, checkpoint contract.StorageMap) (*contract.CallResponse, error) {
	if err := e.Session.Sync(e.used); err != nil {
		return nil, err
	}
	return e.Session.Call(kind, cp, transfers, checkpoint)
}

// Engine runs Programs looked up by binary.
type Engine struct {
	mu       sync.RWMutex
	programs map[string]Program
}

// Default is registered with the bridge as DriverName.
var Default = NewEngine()

func init() {
	bridge.Register(DriverName, func(*bridge.InstanceCreatorConfig) (bridge.InstanceCreator, error) {
		return Default, nil
	})
}

func NewEngine() *Engine {
	return &Engine{programs: make(map[string]Program)}
}

// Define installs p under name and returns the binary that runs it.
func (e *Engine) Define(name string, p Program) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs[name] = p
	return Binary(name)
}

// Binary is the binary naming program name.
func Binary(name string) []byte {
	return []byte(binaryPrefix + name)
}

func (e *Engine) lookup(binary []byte) (Program, error) {
	name := string(binary)
	if !strings.HasPrefix(name, binaryPrefix) {
		return nil, errors.Wrap(contract.ErrDecode, "not a mock binary")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.programs[strings.TrimPrefix(name, binaryPrefix)]
	if !ok {
		return nil, errors.Wrapf(contract.ErrDecode, "undefined program %s", name)
	}
	return p, nil
}

// CreateInstance implements bridge.InstanceCreator.
func (e *Engine) CreateInstance(ctx *bridge.Context, binary []byte) (bridge.Instance, error) {
	p, err := e.lookup(binary)
	if err != nil {
		return nil, err
	}
	return &instance{program: p, env: &Env{Session: ctx.Session}}, nil
}

type instance struct {
	program Program
	env     *Env
}

func (i *instance) Exec() (*contract.CallResponse, error) {
	return i.program(i.env)
}

func (i *instance) FuelUsed() uint64 {
	return i.env.used
}

func (i *instance) Release() {}
