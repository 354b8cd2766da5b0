// Package config resolves MAAS credentials and report options from, in
// rising precedence: a yaml config file, a .env file in the working
// directory, and real environment variables.
package config

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-envparse"
	"gopkg.in/yaml.v3"
)

type Config struct {
	MAASURL string `yaml:"maas_url"`
	APIKey  string `yaml:"api_key"`
	// OutputDir is where reports land when -o gives no explicit path.
	OutputDir string `yaml:"output_dir,omitempty"`
}

// Load reads the config file (explicit path, or the first candidate found),
// then layers .env and environment variables on top. A missing file is not
// an error: file mode needs no credentials at all.
func Load(path string) (*Config, error) {
	if path == "" {
		candidates := []string{
			"maasreport.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/maasreport/config.yaml"),
			"/etc/maasreport/config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnvFile(&cfg, ".env")

	if v := os.Getenv("MAAS_URL"); v != "" {
		cfg.MAASURL = v
	}
	if v := os.Getenv("MAAS_API_KEY"); v != "" {
		cfg.APIKey = v
	}

	return &cfg, nil
}

// applyEnvFile fills credentials from a .env file without overriding
// anything the config file already set.
func applyEnvFile(cfg *Config, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	env, err := envparse.Parse(f)
	if err != nil {
		return
	}
	if cfg.MAASURL == "" {
		cfg.MAASURL = env["MAAS_URL"]
	}
	if cfg.APIKey == "" {
		cfg.APIKey = env["MAAS_API_KEY"]
	}
}
