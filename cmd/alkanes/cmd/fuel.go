package cmd

import (
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/alkanes/alkanescore/kernel/contract/fuel"
)

type FuelCmd struct {
	BaseCmd
}

// FuelStep is the state of the tank after one simulated transaction.
type FuelStep struct {
	TxIndex    uint32
	TxSize     uint64
	Allocation uint64
	BlockFuel  uint64
}

func GetFuelCmd() *FuelCmd {
	fuelCmdIns := new(FuelCmd)

	var (
		network   string
		blockSize string
		txSizes   []string
		consume   uint64
	)
	fuelCmdIns.cmd = &cobra.Command{
		Use:     "fuel",
		Short:   "Simulate how a block's fuel is shared among its transactions.",
		Example: "alkanes fuel --network mainnet --tx 250B --tx 1.5kB --consume 20000",
		RunE: func(cmd *cobra.Command, args []string) error {
			sizes := make([]uint64, 0, len(txSizes))
			var total uint64
			for _, s := range txSizes {
				n, err := units.FromHumanSize(s)
				if err != nil || n < 0 {
					return fmt.Errorf("bad tx size %q", s)
				}
				sizes = append(sizes, uint64(n))
				total += uint64(n)
			}
			if blockSize != "" {
				n, err := units.FromHumanSize(blockSize)
				if err != nil || n < 0 {
					return fmt.Errorf("bad block size %q", blockSize)
				}
				total = uint64(n)
			}
			steps := SimulateFuel(fuel.TotalFuelFor(network), total, sizes, consume)
			printSteps(cmd.OutOrStdout(), steps)
			return nil
		},
	}
	flags := fuelCmdIns.cmd.Flags()
	flags.StringVarP(&network, "network", "n", "mainnet", "network whose block fuel is shared")
	flags.StringVar(&blockSize, "block", "", "virtual size of the block, the sum of --tx by default")
	flags.StringArrayVar(&txSizes, "tx", nil, "virtual size of a transaction, repeatable")
	flags.Uint64Var(&consume, "consume", 0, "fuel each transaction burns before it is refueled")

	return fuelCmdIns
}

// SimulateFuel funds txSizes in order from a block of blockSize, each burning
// up to consume.
func SimulateFuel(total, blockSize uint64, txSizes []uint64, consume uint64) []FuelStep {
	tank := fuel.NewTank(total)
	tank.Initialize(blockSize)
	steps := make([]FuelStep, 0, len(txSizes))
	for i, size := range txSizes {
		tank.FuelTransaction(size, uint32(i))
		step := FuelStep{
			TxIndex:    uint32(i),
			TxSize:     size,
			Allocation: tank.StartFuel(),
		}
		tank.ConsumeAvailable(consume)
		tank.RefuelBlock()
		step.BlockFuel = tank.BlockFuel()
		steps = append(steps, step)
	}
	return steps
}

func printSteps(w io.Writer, steps []FuelStep) {
	fmt.Fprintf(w, "%-6s %-10s %-12s %s\n", "tx", "vsize", "allocation", "block_fuel")
	for _, s := range steps {
		fmt.Fprintf(w, "%-6d %-10s %-12d %d\n", s.TxIndex, units.HumanSize(float64(s.TxSize)), s.Allocation, s.BlockFuel)
	}
}
