package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	audiopolicy "github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "policyd",
		Short: "Audio policy and routing service",
		Long:  "policyd arbitrates audio focus, routes streams to devices, and manages HAL pipes.",
		Run: func(cmd *cobra.Command, args []string) {
			audiopolicy.Main()
		},
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
