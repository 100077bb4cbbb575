package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "webp-conv",
		Short: "Batch image to WebP converter",
		Long: `webp-conv converts directories of PNG, JPEG and TIFF images to WebP by
driving the cwebp encoder with bounded concurrency. It can run one-off
batches, watch a directory for new images, and keep a history of past runs.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
