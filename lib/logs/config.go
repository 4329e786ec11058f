package logs

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/alkanes/alkanescore/lib/utils"
)

// LogConf controls where and how the indexer logs.
type LogConf struct {
	Module   string `mapstructure:"module"`
	Filepath string `mapstructure:"filepath"`
	Filename string `mapstructure:"filename"`
	// 日志格式：logfmt、json
	Fmt string `mapstructure:"fmt"`
	// 日志输出级别：debug、trace、info、warn、error
	Level string `mapstructure:"level"`
	// 是否输出到标准错误
	Console bool `mapstructure:"console"`
	// 只输出到标准错误，不写文件
	ConsoleOnly bool `mapstructure:"consoleOnly"`
	Async       bool `mapstructure:"async"`
	BufSize     int  `mapstructure:"bufSize"`
	// 日志分割周期（单位：分钟）
	RotateInterval int `mapstructure:"rotateInterval"`
	// 日志保留个数
	RotateBackups int `mapstructure:"rotateBackups"`
}

// GetDefLogConf logs debug and above to stderr only.
func GetDefLogConf() *LogConf {
	return &LogConf{
		Module:      "alkanes",
		Filepath:    "logs",
		Filename:    "alkanes",
		Fmt:         "logfmt",
		Level:       "debug",
		Console:     true,
		ConsoleOnly: true,
		BufSize:     102400,
		// rotate every 60 minutes
		RotateInterval: 60,
		// keep old log files for 7 days
		RotateBackups: 168,
	}
}

// LoadLogConf overlays cfgFile on the defaults.
func LoadLogConf(cfgFile string) (*LogConf, error) {
	cfg := GetDefLogConf()
	if err := cfg.loadConf(cfgFile); err != nil {
		return nil, fmt.Errorf("load log config failed.err:%s", err)
	}

	return cfg, nil
}

func (t *LogConf) loadConf(cfgFile string) error {
	if cfgFile == "" || !utils.FileIsExist(cfgFile) {
		return fmt.Errorf("config file set error.path:%s", cfgFile)
	}

	viperObj := viper.New()
	viperObj.SetConfigFile(cfgFile)
	err := viperObj.ReadInConfig()
	if err != nil {
		return fmt.Errorf("read config failed.path:%s,err:%v", cfgFile, err)
	}

	if err = viperObj.Unmarshal(t); err != nil {
		return fmt.Errorf("unmatshal config failed.path:%s,err:%v", cfgFile, err)
	}

	return nil
}
