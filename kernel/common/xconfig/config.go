package xconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/fuel"
	"github.com/alkanes/alkanescore/lib/storage/kvdb"
	"github.com/alkanes/alkanescore/lib/utils"
)

// EnvPrefix namespaces environment overrides, e.g. ALKANES_NETWORK.
const EnvPrefix = "ALKANES"

// activation heights of the alkanes subprotocol per network
var activationHeights = map[string]uint64{
	"mainnet":   880_000,
	"regtest":   0,
	"testnet":   0,
	"signet":    0,
	"dogecoin":  6_000_000,
	"fractal":   400_000,
	"luckycoin": 1_664_317,
	"bellscoin": 533_970,
}

// ActivationHeightFor returns the first height messages are executed at.
// Unknown networks activate at genesis.
func ActivationHeightFor(network string) uint64 {
	return activationHeights[network]
}

type StorageConf struct {
	// leveldb or badger
	Engine   string `mapstructure:"engine"`
	DataDir  string `mapstructure:"dataDir"`
	InMemory bool   `mapstructure:"inMemory"`
	// human readable, e.g. "128MB"
	MemCache          string `mapstructure:"memCache"`
	FileHandlersCache int    `mapstructure:"fileHandlersCache"`
}

type MetricsConf struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// AlkanesConf is the indexer configuration.
type AlkanesConf struct {
	Network string `mapstructure:"network"`
	// 0 means the network default
	ActivationHeight uint64 `mapstructure:"activationHeight"`
	// per block fuel, 0 means the network default
	TotalFuel    uint64               `mapstructure:"totalFuel"`
	MaxCallDepth int                  `mapstructure:"maxCallDepth"`
	DrainPolicy  contract.DrainPolicy `mapstructure:"drainPolicy"`
	// registered engine driver executing contract binaries
	Engine        string      `mapstructure:"engine"`
	CodeCacheSize int         `mapstructure:"codeCacheSize"`
	TraceEnabled  bool        `mapstructure:"traceEnabled"`
	LogConf       string      `mapstructure:"logConf"`
	Storage       StorageConf `mapstructure:"storage"`
	Metrics       MetricsConf `mapstructure:"metrics"`
}

func GetDefAlkanesConf() *AlkanesConf {
	return &AlkanesConf{
		Network:       "mainnet",
		MaxCallDepth:  contract.DefaultMaxCallDepth,
		DrainPolicy:   contract.DrainOnMessageRevert,
		Engine:        "xvm",
		CodeCacheSize: 256,
		TraceEnabled:  true,
		Storage: StorageConf{
			Engine:            kvdb.KVEngineTypeLDB,
			DataDir:           "data/alkanes",
			MemCache:          "128MB",
			FileHandlersCache: 512,
		},
		Metrics: MetricsConf{
			Listen: ":9464",
		},
	}
}

// LoadAlkanesConf overlays cfgFile and ALKANES_* variables on the defaults.
// An empty cfgFile reads the environment only.
func LoadAlkanesConf(cfgFile string) (*AlkanesConf, error) {
	cfg := GetDefAlkanesConf()
	if err := cfg.loadConf(cfgFile); err != nil {
		return nil, fmt.Errorf("load alkanes config failed.err:%s", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t *AlkanesConf) loadConf(cfgFile string) error {
	viperObj := viper.New()
	viperObj.SetEnvPrefix(EnvPrefix)
	viperObj.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperObj.AutomaticEnv()
	// AutomaticEnv only reaches keys viper knows about
	for _, key := range []string{"network", "activationHeight", "totalFuel", "maxCallDepth",
		"drainPolicy", "engine", "codeCacheSize", "traceEnabled", "logConf",
		"storage.engine", "storage.dataDir", "storage.inMemory", "storage.memCache",
		"metrics.enabled", "metrics.listen"} {
		if err := viperObj.BindEnv(key); err != nil {
			return err
		}
	}

	if cfgFile != "" {
		if !utils.FileIsExist(cfgFile) {
			return fmt.Errorf("config file set error.path:%s", cfgFile)
		}
		viperObj.SetConfigFile(cfgFile)
		if err := viperObj.ReadInConfig(); err != nil {
			return fmt.Errorf("read config failed.path:%s,err:%v", cfgFile, err)
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := viperObj.Unmarshal(t, hook); err != nil {
		return fmt.Errorf("unmatshal config failed.path:%s,err:%v", cfgFile, err)
	}
	return nil
}

// Validate rejects settings the indexer cannot run with.
func (t *AlkanesConf) Validate() error {
	if t.MaxCallDepth <= 0 {
		return fmt.Errorf("maxCallDepth must be positive, got %d", t.MaxCallDepth)
	}
	if t.Storage.Engine != kvdb.KVEngineTypeLDB && t.Storage.Engine != kvdb.KVEngineTypeBadger {
		return fmt.Errorf("unknown storage engine %q", t.Storage.Engine)
	}
	if _, err := t.MemCacheMB(); err != nil {
		return err
	}
	return nil
}

// Activation resolves the configured or network default activation height.
func (t *AlkanesConf) Activation() uint64 {
	if t.ActivationHeight != 0 {
		return t.ActivationHeight
	}
	return ActivationHeightFor(t.Network)
}

// BlockFuel resolves the configured or network default fuel per block.
func (t *AlkanesConf) BlockFuel() uint64 {
	if t.TotalFuel != 0 {
		return t.TotalFuel
	}
	return fuel.TotalFuelFor(t.Network)
}

// ExecConfig is the part of the configuration the orchestrator reads.
func (t *AlkanesConf) ExecConfig() contract.ExecConfig {
	return contract.ExecConfig{
		MaxCallDepth: t.MaxCallDepth,
		DrainPolicy:  t.DrainPolicy,
	}
}

// MemCacheMB parses Storage.MemCache into megabytes.
func (t *AlkanesConf) MemCacheMB() (int, error) {
	if t.Storage.MemCache == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(t.Storage.MemCache)
	if err != nil {
		return 0, fmt.Errorf("bad storage.memCache %q: %v", t.Storage.MemCache, err)
	}
	return int(n / units.MiB), nil
}

// KVParameter describes the database the indexer opens, rooted at rootPath.
func (t *AlkanesConf) KVParameter(rootPath string) (*kvdb.KVParameter, error) {
	mb, err := t.MemCacheMB()
	if err != nil {
		return nil, err
	}
	dir := t.Storage.DataDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootPath, dir)
	}
	return &kvdb.KVParameter{
		DBPath:                dir,
		KVEngineType:          t.Storage.Engine,
		MemCacheSize:          mb,
		FileHandlersCacheSize: t.Storage.FileHandlersCache,
		InMemory:              t.Storage.InMemory,
	}, nil
}
