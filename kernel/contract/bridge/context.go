package bridge

import (
	"sync"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/lib/logs"
)

// Context is what an engine instance holds for the call it executes.
type Context struct {
	ID      int64
	Runtime *contract.RuntimeContext
	// Target is the cellpack target as written, before resolution.
	Target contract.Target
	// FuelLimit is the allocation left when the call was entered.
	FuelLimit uint64
	Session   *Session
	// Instance is the engine instance executing the call, set once created.
	Instance Instance
	Logger   logs.Logger
}

// ContextManager hands out and looks up the Context of active calls.
type ContextManager struct {
	// guards ctxid and contextes; host calls look contexts up concurrently
	mutex     sync.Mutex
	ctxid     int64
	contextes map[int64]*Context
}

// NewContextManager instances a new ContextManager
func NewContextManager() *ContextManager {
	return &ContextManager{
		contextes: make(map[int64]*Context),
	}
}

// Context returns the live Context registered under id.
func (n *ContextManager) Context(id int64) (*Context, bool) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	ctx, ok := n.contextes[id]
	return ctx, ok
}

// MakeContext allocates a Context with unique context id
func (n *ContextManager) MakeContext() *Context {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.ctxid++
	ctx := new(Context)
	ctx.ID = n.ctxid
	n.contextes[ctx.ID] = ctx
	return ctx
}

// DestroyContext must run once the call finishes, whether it succeeded or not.
func (n *ContextManager) DestroyContext(ctx *Context) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	delete(n.contextes, ctx.ID)
}

// Len is the number of live contexts.
func (n *ContextManager) Len() int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return len(n.contextes)
}
