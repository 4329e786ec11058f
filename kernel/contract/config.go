package contract

import (
	"fmt"
	"strings"
)

// DrainPolicy selects when the remaining transaction fuel is clamped to the floor.
type DrainPolicy int

const (
	// DrainOnMessageRevert drains after a top-level message reverts.
	DrainOnMessageRevert DrainPolicy = iota
	// DrainOnCallRevert drains after any call in the tree reverts.
	DrainOnCallRevert
	// DrainNever leaves the allocation untouched.
	DrainNever
)

var drainPolicyNames = []string{"message", "call", "never"}

func (p DrainPolicy) String() string {
	if int(p) < len(drainPolicyNames) {
		return drainPolicyNames[p]
	}
	return fmt.Sprintf("drain_policy(%d)", int(p))
}

// ParseDrainPolicy accepts "message", "call" or "never".
func ParseDrainPolicy(s string) (DrainPolicy, error) {
	for i, name := range drainPolicyNames {
		if strings.EqualFold(s, name) {
			return DrainPolicy(i), nil
		}
	}
	return DrainOnMessageRevert, fmt.Errorf("unknown drain policy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p DrainPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *DrainPolicy) UnmarshalText(text []byte) error {
	v, err := ParseDrainPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// DefaultMaxCallDepth bounds the nesting of contract calls.
const DefaultMaxCallDepth = 1024

// ExecConfig holds the knobs of the call orchestrator.
type ExecConfig struct {
	MaxCallDepth int
	DrainPolicy  DrainPolicy
}

// DefaultExecConfig returns the configuration used on mainnet.
func DefaultExecConfig() ExecConfig {
	return ExecConfig{
		MaxCallDepth: DefaultMaxCallDepth,
		DrainPolicy:  DrainOnMessageRevert,
	}
}
