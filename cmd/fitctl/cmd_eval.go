package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sbl8/fitgraph/driver"
	"github.com/sbl8/fitgraph/exprgraph"
	"github.com/spf13/cobra"
)

var evalHeterogeneous bool

func init() {
	evalCmd.Flags().BoolVar(&evalHeterogeneous, "heterogeneous", false, "evaluate in heterogeneous CPU/GPU mode (requires a build tagged \"gpu\")")
	rootCmd.AddCommand(evalCmd)
}

var evalCmd = &cobra.Command{
	Use:   "eval <spec-file>",
	Short: "Parse a graph spec, bind it with no dataset, and print its value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "reading %s", args[0])
		}

		g, err := exprgraph.Build(string(spec))
		if err != nil {
			return err
		}

		mode := driver.ModeCPU
		if evalHeterogeneous {
			mode = driver.ModeHeterogeneous
		}

		d, err := driver.NewDriver(g.Top(), mode, driver.DefaultDriverOptions())
		if err != nil {
			return err
		}
		if err := d.BindData(nil, driver.BindOptions{}); err != nil {
			return err
		}

		val, err := d.GetValue()
		if err != nil {
			return err
		}
		fmt.Printf("%s = %v\n", g.Top().Name(), val)
		return nil
	},
}
