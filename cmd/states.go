package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taxautomation/taxbot/internal/model"
	"github.com/taxautomation/taxbot/internal/registry"
)

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "List available state rule files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		configs, err := registry.LoadAll(cfg.States.Dir)
		if err != nil {
			return err
		}
		if len(configs) == 0 {
			fmt.Fprintf(os.Stderr, "No state rule files in %s.\n", cfg.States.Dir)
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tNAME\tFIELDS\tBACKUPS\tPRIMARY URL")
		for i := range configs {
			c := &configs[i]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
				c.StateCode, c.StateName, fieldNames(c.IncludedFields),
				len(c.BackupURLs), c.TaxDefinitionsURL)
		}
		return tw.Flush()
	},
}

func fieldNames(fields []model.TaxField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}

func init() {
	rootCmd.AddCommand(statesCmd)
}
