package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sbl8/fitgraph/driver"
	"github.com/sbl8/fitgraph/exprgraph"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(printCmd)
}

var printCmd = &cobra.Command{
	Use:   "print <spec-file>",
	Short: "Parse a graph spec and print its analyzed node table",
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

		d, err := driver.NewDriver(g.Top(), driver.ModeCPU, driver.DefaultDriverOptions())
		if err != nil {
			return err
		}
		if err := d.BindData(nil, driver.BindOptions{}); err != nil {
			return err
		}

		return d.Print(os.Stdout)
	},
}
