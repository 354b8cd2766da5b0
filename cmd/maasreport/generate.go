package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/luis15pt/Nexgen-MAAS-validation/internal/config"
	"github.com/luis15pt/Nexgen-MAAS-validation/internal/maas"
	"github.com/luis15pt/Nexgen-MAAS-validation/internal/report"
)

// Commissioning script names as deployed; older deployments may carry a
// different version suffix, so each lookup falls back to a substring scan.
var stageScripts = struct {
	install, inventory, stress struct{ name, hint string }
}{
	install:   struct{ name, hint string }{"97-nexgen-gpu-install-580-12.8", "gpu-install"},
	inventory: struct{ name, hint string }{"98-nexgen-gpu-inventory", "gpu-inventory"},
	stress:    struct{ name, hint string }{"99-nexgen-gpu-stress-test", "gpu-stress"},
}

var (
	genHost     string
	genOutput   string
	installFile string
	invFile     string
	stressFile  string
	machineFile string
	lshwFile    string
	resFile     string
	dmiFile     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the HTML validation report for one machine",
	Long: `Generate fetches the machine's commissioning outputs and renders the
validation report. With --host the payloads come from the MAAS API;
otherwise they are read from the files given by the payload flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		var p report.Payloads
		if genHost != "" {
			if err := fetchFromMAAS(cmd.Context(), cfg, &p); err != nil {
				return err
			}
		} else {
			if err := loadFromFiles(&p); err != nil {
				return err
			}
		}

		data := report.Build(p, log)

		out := genOutput
		if out == "" {
			out = strings.ToUpper(data.Hostname) + "-MAAS-validation.html"
			if cfg.OutputDir != "" {
				out = filepath.Join(cfg.OutputDir, out)
			}
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := report.Render(f, data); err != nil {
			return err
		}

		log.Info().Str("path", out).Str("verdict", string(data.Overall)).Msg("report written")
		fmt.Println(out)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genHost, "host", "", "machine hostname to fetch from MAAS")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "output path (default <HOST>-MAAS-validation.html)")
	generateCmd.Flags().StringVar(&installFile, "install", "", "GPU install result JSON file")
	generateCmd.Flags().StringVar(&invFile, "inventory", "", "GPU inventory result JSON file")
	generateCmd.Flags().StringVar(&stressFile, "stress", "", "GPU stress test result JSON file")
	generateCmd.Flags().StringVar(&machineFile, "machine", "", "MAAS machine record JSON file")
	generateCmd.Flags().StringVar(&lshwFile, "lshw", "", "lshw XML output file")
	generateCmd.Flags().StringVar(&resFile, "resources", "", "machine-resources JSON output file")
	generateCmd.Flags().StringVar(&dmiFile, "dmidecode", "", "dmidecode text output file")
}

func fetchFromMAAS(ctx context.Context, cfg *config.Config, p *report.Payloads) error {
	if cfg.MAASURL == "" || cfg.APIKey == "" {
		return fmt.Errorf("MAAS mode needs maas_url and api_key (config file, .env, or MAAS_URL/MAAS_API_KEY)")
	}
	client, err := maas.New(cfg.MAASURL, cfg.APIKey, log)
	if err != nil {
		return err
	}

	machine, err := client.ResolveHostname(ctx, genHost)
	if err != nil {
		return err
	}
	systemID := machine.Get("system_id").String()
	log.Info().Str("hostname", genHost).Str("system_id", systemID).Msg("machine resolved")

	p.Hostname = genHost
	p.MAASURL = client.BaseURL()
	p.SystemID = systemID

	p.Machine, err = client.MachineDetails(ctx, systemID)
	if err != nil {
		return err
	}
	p.HasMachine = true

	p.Install, p.HasInstall = fetchStage(ctx, client, systemID, stageScripts.install.name, stageScripts.install.hint)
	p.Inventory, p.HasInventory = fetchStage(ctx, client, systemID, stageScripts.inventory.name, stageScripts.inventory.hint)
	p.Stress, p.HasStress = fetchStage(ctx, client, systemID, stageScripts.stress.name, stageScripts.stress.hint)

	p.HardwareTree = client.HardwareTree(ctx, systemID)
	p.Resources, p.HasResources = client.MachineResources(ctx, systemID)
	p.FirmwareText, _ = client.FirmwareText(ctx, systemID)

	runs, err := client.CommissioningScripts(ctx, systemID)
	if err != nil {
		log.Warn().Err(err).Msg("script listing unavailable")
	}
	for _, r := range runs {
		p.Scripts = append(p.Scripts, report.ScriptRun{Name: r.Name, Status: r.Status, Runtime: r.Runtime})
	}
	return nil
}

func fetchStage(ctx context.Context, client *maas.Client, systemID, name, hint string) (gjson.Result, bool) {
	if doc, ok := client.ScriptJSON(ctx, systemID, name); ok {
		return doc, true
	}
	if text, ok := client.ScriptStdout(ctx, systemID, hint); ok {
		if doc, valid := maas.ExtractJSON(text); valid {
			return doc, true
		}
	}
	log.Warn().Str("script", name).Msg("stage payload not found")
	return gjson.Result{}, false
}

func loadFromFiles(p *report.Payloads) error {
	if installFile == "" && invFile == "" && stressFile == "" && machineFile == "" {
		return fmt.Errorf("either --host or at least one payload file is required")
	}

	var err error
	if p.Install, p.HasInstall, err = readJSONFile(installFile); err != nil {
		return err
	}
	if p.Inventory, p.HasInventory, err = readJSONFile(invFile); err != nil {
		return err
	}
	if p.Stress, p.HasStress, err = readJSONFile(stressFile); err != nil {
		return err
	}
	if p.Machine, p.HasMachine, err = readJSONFile(machineFile); err != nil {
		return err
	}
	if lshwFile != "" {
		if p.HardwareTree, err = os.ReadFile(lshwFile); err != nil {
			return err
		}
	}
	if p.Resources, p.HasResources, err = readJSONFile(resFile); err != nil {
		return err
	}
	if dmiFile != "" {
		raw, err := os.ReadFile(dmiFile)
		if err != nil {
			return err
		}
		p.FirmwareText = string(raw)
	}
	return nil
}

func readJSONFile(path string) (gjson.Result, bool, error) {
	if path == "" {
		return gjson.Result{}, false, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return gjson.Result{}, false, err
	}
	doc, ok := maas.ExtractJSON(string(raw))
	if !ok {
		return gjson.Result{}, false, fmt.Errorf("%s: no JSON object found", path)
	}
	return doc, true, nil
}
