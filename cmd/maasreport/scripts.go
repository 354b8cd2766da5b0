package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/luis15pt/Nexgen-MAAS-validation/internal/config"
	"github.com/luis15pt/Nexgen-MAAS-validation/internal/maas"
)

var scriptsHost string

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "List a machine's commissioning script runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cfg.MAASURL == "" || cfg.APIKey == "" {
			return fmt.Errorf("maas_url and api_key are required (config file, .env, or MAAS_URL/MAAS_API_KEY)")
		}
		client, err := maas.New(cfg.MAASURL, cfg.APIKey, log)
		if err != nil {
			return err
		}

		machine, err := client.ResolveHostname(cmd.Context(), scriptsHost)
		if err != nil {
			return err
		}
		runs, err := client.CommissioningScripts(cmd.Context(), machine.Get("system_id").String())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCRIPT\tSTATUS\tEXIT\tRUNTIME")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Name, r.Status, r.ExitStatus, r.Runtime)
		}
		return w.Flush()
	},
}

func init() {
	scriptsCmd.Flags().StringVar(&scriptsHost, "host", "", "machine hostname")
	scriptsCmd.MarkFlagRequired("host")
}
