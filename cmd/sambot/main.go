package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "sambot",
		Short: "Sam, the agronomy assistant for Zimbabwean farmers",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.toml", "path to the TOML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the admin API",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
