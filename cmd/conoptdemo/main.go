// Command conoptdemo runs a set of small worked constrained-optimization
// problems end to end and prints the augmented-Lagrangian status trace,
// giving the conopt library a runnable face.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/curioloop/conopt/cmd/conoptdemo/scenario"
)

func main() {
	root := &cobra.Command{
		Use:   "conoptdemo",
		Short: "Run the conopt augmented-Lagrangian worked scenarios",
	}

	var quiet bool
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress the outer-loop status trace")

	for _, s := range scenario.All {
		s := s
		root.AddCommand(&cobra.Command{
			Use:   s.Name,
			Short: s.Short,
			RunE: func(cmd *cobra.Command, args []string) error {
				var log func(string)
				if !quiet {
					log = func(msg string) { fmt.Fprintln(cmd.OutOrStdout(), msg) }
				}
				result, err := s.Run(log)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), result)
				return nil
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Run every scenario in sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			var log func(string)
			if !quiet {
				log = func(msg string) { fmt.Fprintln(cmd.OutOrStdout(), msg) }
			}
			for _, s := range scenario.All {
				fmt.Fprintf(cmd.OutOrStdout(), "== %s ==\n", s.Name)
				result, err := s.Run(log)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), result)
			}
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
