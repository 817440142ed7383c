// Package cli wires the presencia binaries: the hub (`serve`), the kiosk
// terminal (`run`) and the enrollment tool (`enroll`).
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "presencia",
	Short: "Biometric attendance: hub, terminal and enrollment tooling",
	Long: `Presencia records plant entries and exits. The hub ('serve') keeps the
identity and event records; terminals ('run') recognize employees at the door
and submit access decisions; 'enroll' registers a new employee from a photo.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
