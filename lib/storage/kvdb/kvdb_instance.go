package kvdb

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// KVParameter structure for kv instance parameters
type KVParameter struct {
	DBPath                string
	KVEngineType          string
	MemCacheSize          int
	FileHandlersCacheSize int
	// InMemory keeps the whole database in memory, used by tests and dry runs
	InMemory bool
}

const (
	KVEngineTypeLDB    = "leveldb"
	KVEngineTypeBadger = "badger"
)

var (
	servsMu  sync.RWMutex
	services = make(map[string]NewStorageFunc)
)

type NewStorageFunc func(*KVParameter) (Database, error)

func Register(name string, f NewStorageFunc) {
	servsMu.Lock()
	defer servsMu.Unlock()

	if f == nil {
		panic("storage: Register new func is nil")
	}
	if _, dup := services[name]; dup {
		panic("storage: Register called twice for func " + name)
	}
	services[name] = f
}

// Engines lists the registered kv engines.
func Engines() []string {
	servsMu.RLock()
	defer servsMu.RUnlock()
	list := make([]string, 0, len(services))
	for name := range services {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

// CreateKVInstance opens the engine kvParam names. A persistent instance
// needs a DBPath.
func CreateKVInstance(kvParam *KVParameter) (Database, error) {
	if kvParam == nil {
		return nil, errors.New("kv parameter unset")
	}
	if !kvParam.InMemory && kvParam.DBPath == "" {
		return nil, errors.Errorf("kv engine %q needs a db path", kvParam.KVEngineType)
	}

	servsMu.RLock()
	f, ok := services[kvParam.KVEngineType]
	servsMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("kv engine %q not registered, have %v", kvParam.KVEngineType, Engines())
	}

	instance, err := f(kvParam)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s instance fail", kvParam.KVEngineType)
	}
	return instance, nil
}

// GetDBPath return the value of DBPath
func (param *KVParameter) GetDBPath() string {
	return param.DBPath
}

// GetKVEngineType return the value of KVEngineType
func (param *KVParameter) GetKVEngineType() string {
	return param.KVEngineType
}

// GetMemCacheSize return the value of MemCacheSize
func (param *KVParameter) GetMemCacheSize() int {
	if param.MemCacheSize <= 0 {
		return 16
	}
	return param.MemCacheSize
}

// GetFileHandlersCacheSize return the value of FileHandlersCacheSize
func (param *KVParameter) GetFileHandlersCacheSize() int {
	if param.FileHandlersCacheSize <= 0 {
		return 16
	}
	return param.FileHandlersCacheSize
}
