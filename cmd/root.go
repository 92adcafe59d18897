// Package cmd is for command line interactions with the pairTrimmer
// application.
package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

// rootCmd represents the base command when called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use: "pairTrimmer",
	Short: `Trim adapters and low-quality tails from short-read sequencing data.
Paired-end reads are trimmed by aligning each read against the reverse
complement of its mate to find the insert boundary`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(trimCommand())
	rootCmd.AddCommand(versionCommand())
}
