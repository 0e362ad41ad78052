package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/quantlab/internal/strategy/factory"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, code := range factory.Codes() {
			strat, err := factory.New(code, nil)
			if err != nil {
				return err
			}
			fmt.Printf("%-12s %s\n", code, strat.Description())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
