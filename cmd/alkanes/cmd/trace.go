package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/spf13/cobra"

	xconf "github.com/alkanes/alkanescore/kernel/common/xconfig"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
	"github.com/alkanes/alkanescore/lib/storage/kvdb"
	// import要使用的存储驱动
	_ "github.com/alkanes/alkanescore/lib/storage/kvdb/badger"
	_ "github.com/alkanes/alkanescore/lib/storage/kvdb/leveldb"
)

type TraceCmd struct {
	BaseCmd
}

func GetTraceCmd() *TraceCmd {
	traceCmdIns := new(TraceCmd)

	// 定义命令行参数变量
	var (
		confPath string
		rootPath string
		height   int64
	)
	traceCmdIns.cmd = &cobra.Command{
		Use:   "trace [txid:vout]",
		Short: "Print a persisted trace, or list the traced outpoints of a block.",
		Example: "alkanes trace -c conf/alkanes.yaml 5e1f...c2:3\n" +
			"alkanes trace -c conf/alkanes.yaml --height 880000",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := xconf.LoadAlkanesConf(confPath)
			if err != nil {
				return err
			}
			param, err := conf.KVParameter(rootPath)
			if err != nil {
				return err
			}
			db, err := kvdb.CreateKVInstance(param)
			if err != nil {
				return err
			}
			defer db.Close()
			sink := trace.NewKVSink(db)

			if height >= 0 {
				ops, err := sink.OutpointsAt(uint64(height))
				if err != nil {
					return err
				}
				for _, op := range ops {
					fmt.Fprintln(cmd.OutOrStdout(), op)
				}
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("need an outpoint or --height")
			}
			op, err := ParseOutpoint(args[0])
			if err != nil {
				return err
			}
			tr, err := sink.Load(op)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(tr, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	// 设置命令行参数并绑定变量
	flags := traceCmdIns.cmd.Flags()
	flags.StringVarP(&confPath, "conf", "c", "", "alkanes config file path")
	flags.StringVar(&rootPath, "root", ".", "directory a relative storage.dataDir is resolved against")
	flags.Int64Var(&height, "height", -1, "list the outpoints traced at this height")

	return traceCmdIns
}

// ParseOutpoint reads "txid:vout".
func ParseOutpoint(s string) (wire.OutPoint, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return wire.OutPoint{}, fmt.Errorf("outpoint %q is not txid:vout", s)
	}
	hash, err := chainhash.NewHashFromStr(s[:i])
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("bad txid in %q: %v", s, err)
	}
	vout, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("bad vout in %q: %v", s, err)
	}
	return wire.OutPoint{Hash: *hash, Index: uint32(vout)}, nil
}
