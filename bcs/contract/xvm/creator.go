package xvm

import (
	"bytes"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	hex "github.com/tmthrgd/go-hex"
	"github.com/xuperchain/crypto/core/hash"
	"github.com/xuperchain/wagon/wasm"
	"github.com/xuperchain/xvm/exec"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/bridge"
	"github.com/alkanes/alkanescore/lib/logs"
	"github.com/alkanes/alkanescore/lib/metrics"
)

const (
	// DriverName is the name the interpreter registers under.
	DriverName = "xvm"

	entryExport  = "__execute"
	memoryExport = "memory"

	defaultCodeCacheSize = 128
)

type xvmCreator struct {
	ctxmgr   *bridge.ContextManager
	resolver exec.Resolver
	// compiled code by binary digest
	codes  *lru.Cache
	logger logs.Logger
}

func newXVMCreator(config *bridge.InstanceCreatorConfig) (bridge.InstanceCreator, error) {
	if config.ContextManager == nil {
		return nil, errors.New("xvm creator needs a context manager")
	}
	size := config.CodeCacheSize
	if size <= 0 {
		size = defaultCodeCacheSize
	}
	codes, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = logs.NewDiscardLogger()
	}
	return &xvmCreator{
		ctxmgr:   config.ContextManager,
		resolver: exec.NewMultiResolver(newHostResolver(config.ContextManager)),
		codes:    codes,
		logger:   logger,
	}, nil
}

// validateModule checks the binary is a wasm module exporting the entry
// point and its memory.
func validateModule(binary []byte) error {
	module, err := wasm.DecodeModule(bytes.NewBuffer(binary))
	if err != nil {
		return errors.Wrapf(contract.ErrDecode, "wasm module: %v", err)
	}
	if module.Export == nil {
		return errors.Wrap(contract.ErrDecode, "wasm module exports nothing")
	}
	for _, name := range []string{entryExport, memoryExport} {
		if _, ok := module.Export.Entries[name]; !ok {
			return errors.Wrapf(contract.ErrDecode, "wasm module does not export %s", name)
		}
	}
	return nil
}

func (x *xvmCreator) compile(binary []byte) (exec.Code, error) {
	digest := hex.EncodeToString(hash.DoubleSha256(binary))
	if code, ok := x.codes.Get(digest); ok {
		metrics.CodeCacheCounter.WithLabelValues("hit").Inc()
		return code.(exec.Code), nil
	}
	metrics.CodeCacheCounter.WithLabelValues("miss").Inc()

	if err := validateModule(binary); err != nil {
		return nil, err
	}
	code, err := exec.NewInterpCode(binary, x.resolver)
	if err != nil {
		return nil, errors.Wrapf(contract.ErrDecode, "compile wasm: %v", err)
	}
	x.codes.Add(digest, code)
	x.logger.Debug("compiled contract code", "digest", digest, "size", len(binary))
	return code, nil
}

// CreateInstance implements bridge.InstanceCreator.
func (x *xvmCreator) CreateInstance(ctx *bridge.Context, binary []byte) (bridge.Instance, error) {
	code, err := x.compile(binary)
	if err != nil {
		return nil, err
	}
	return createInstance(ctx, code)
}

func init() {
	bridge.Register(DriverName, newXVMCreator)
}
