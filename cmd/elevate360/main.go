package main

import (
	"log"
	"os"

	infra "github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "elevate360",
	Short:         "Soft skill training backend",
	Long:          "Serves daily challenges, progress tracking and the video library of the elevate360 client.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	infra.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd, seedCmd)
}

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
