package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	hex "github.com/tmthrgd/go-hex"

	"github.com/alkanes/alkanescore/kernel/contract"
)

type DecodeCmd struct {
	BaseCmd
}

func GetDecodeCmd() *DecodeCmd {
	decodeCmdIns := new(DecodeCmd)

	decodeCmdIns.cmd = &cobra.Command{
		Use:     "decode <calldata hex>",
		Short:   "Decode the cellpack carried by a message.",
		Example: "alkanes decode 0200a1f40a",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := DecodeCalldata(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	return decodeCmdIns
}

// DecodeCalldata renders the cellpack in hex calldata, one field per line.
func DecodeCalldata(text string) (string, error) {
	calldata, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(text), "0x"))
	if err != nil {
		return "", fmt.Errorf("calldata is not hex: %v", err)
	}
	cp, err := contract.DecodeCellpack(calldata)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "kind:   %s\n", cp.Target.Kind)
	fmt.Fprintf(&b, "target: %s\n", cp.Target.Id)
	switch cp.Target.Kind {
	case contract.TargetDeployReserved:
		fmt.Fprintf(&b, "binds:  %s\n", cp.Target.ReservedId())
	case contract.TargetDeployTemplate, contract.TargetDeployFactory:
		fmt.Fprintf(&b, "source: %s\n", cp.Target.Source())
	}
	for i := range cp.Inputs {
		fmt.Fprintf(&b, "input%d: %s\n", i, cp.Inputs[i].Dec())
	}
	return b.String(), nil
}
