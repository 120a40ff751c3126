package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <suite-file-or-directory>",
	Short: "List the cases a run would execute, in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suites, err := loadSuites(args[0])
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		dim := color.New(color.Faint)
		for _, s := range suites {
			bold.Println(s.Name)
			for _, c := range s.Cases {
				method := c.Method
				if method == "" {
					method = "GET"
				}
				line := fmt.Sprintf("  %-7s %s", strings.ToUpper(method), c.URL)
				if c.Skip {
					dim.Printf("%s  (%s, skipped)\n", line, c.Name)
					continue
				}
				fmt.Printf("%s  (%s)\n", line, c.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
