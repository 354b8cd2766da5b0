package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luis15pt/Nexgen-MAAS-validation/internal/version"
)

var (
	cfgFile string
	quiet   bool
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "maasreport",
	Short:   "GPU commissioning validation report generator",
	Version: version.Version,
	Long: `maasreport reconciles a machine's commissioning outputs (lshw hardware
tree, machine-resources JSON, dmidecode text, GPU install/inventory/stress
results and the MAAS machine record) into a single HTML validation report
with a per-stage verdict.

Payloads come either from the MAAS API (--host) or from local files.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if quiet {
			level = zerolog.WarnLevel
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches maasreport.yaml, ~/.config/maasreport/, /etc/maasreport/)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scriptsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
