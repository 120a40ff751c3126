package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <suite-file-or-directory>",
	Short: "Check suite files without sending any requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suites, err := loadSuites(args[0])
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen)
		total := 0
		for _, s := range suites {
			total += len(s.Cases)
			green.Fprintf(os.Stdout, "✓ %s", s.Path)
			fmt.Printf(" (%d cases)\n", len(s.Cases))
		}
		fmt.Printf("\n%d suite(s), %d case(s), no problems found\n", len(suites), total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
