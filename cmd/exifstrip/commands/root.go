package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "exifstrip",
	Short: "exifstrip - JPEG ingest validation and EXIF stripping pipeline",
	Long:  `Validates uploaded JPEGs, strips EXIF metadata, and relocates clean files to the processed bucket. Invalid or unverifiable uploads are discarded.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("aws-region", "us-east-1", "AWS region")
	rootCmd.PersistentFlags().String("param-prefix", "gel-exifstrip", "Parameter store namespace")
	rootCmd.PersistentFlags().String("scratch-dir", "/tmp/exifstrip", "Scratch directory for downloads")
	rootCmd.PersistentFlags().String("journal-path", ".artifacts/journal.db", "Processing journal SQLite path")
	rootCmd.PersistentFlags().String("fsm-db-path", ".artifacts/fsm.db", "FSM database path")
	rootCmd.PersistentFlags().Duration("cache-ttl", 300*time.Second, "Config cache TTL")
	rootCmd.PersistentFlags().Int("max-key-length", 1024, "Max accepted object key length")

	viper.BindPFlag("aws-region", rootCmd.PersistentFlags().Lookup("aws-region"))
	viper.BindPFlag("param-prefix", rootCmd.PersistentFlags().Lookup("param-prefix"))
	viper.BindPFlag("scratch-dir", rootCmd.PersistentFlags().Lookup("scratch-dir"))
	viper.BindPFlag("journal-path", rootCmd.PersistentFlags().Lookup("journal-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("cache-ttl", rootCmd.PersistentFlags().Lookup("cache-ttl"))
	viper.BindPFlag("max-key-length", rootCmd.PersistentFlags().Lookup("max-key-length"))
}
