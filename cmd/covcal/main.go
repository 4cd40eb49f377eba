package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "covcal",
	Short: "Coverage calibration tools for control regions",
	Long: `covcal calibrates read coverage inside named control regions by
deterministically downsampling read pairs, and reports per-region depth
statistics.

Input BAM files must be coordinate sorted and indexed (.bai).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("covcal: ")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(bedcovCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("covcal version 0.1.0")
	},
}
