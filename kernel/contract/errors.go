package contract

import (
	"github.com/pkg/errors"
)

// Error kinds surfaced by message dispatch. Callers match them with errors.Is;
// call sites wrap them with the detail of what failed.
var (
	ErrDecode              = errors.New("decode error")
	ErrUnresolvedTarget    = errors.New("unresolved target")
	ErrFuelExhausted       = errors.New("fuel exhausted")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorizedMint    = errors.New("unauthorized mint")
	ErrCallDepthExceeded   = errors.New("call depth exceeded")
	ErrVMTrap              = errors.New("vm trap")
	ErrSubprotocolInactive = errors.New("subprotocol inactive")
)

var errorKinds = []error{
	ErrDecode,
	ErrUnresolvedTarget,
	ErrFuelExhausted,
	ErrInsufficientBalance,
	ErrUnauthorizedMint,
	ErrCallDepthExceeded,
	ErrVMTrap,
	ErrSubprotocolInactive,
}

// ErrorKind returns the kind err belongs to, or "unknown".
func ErrorKind(err error) string {
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "unknown"
}
