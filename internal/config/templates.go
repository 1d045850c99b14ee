package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const templateHeader = `# fabricctl configuration.
# Switch datapath ids follow heap numbering: child = parent*fanout + i.
# Ids above flat_threshold are flat core switches.

`

// Template renders the defaults as a commented TOML file.
func Template() (string, error) {
	return Render(Default())
}

func Render(cfg Config) (string, error) {
	data, err := toml.Marshal(toFile(cfg))
	if err != nil {
		return "", fmt.Errorf("render config: %w", err)
	}
	return templateHeader + string(data), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
