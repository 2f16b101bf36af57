package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadNotifyFile overlays channel settings from a YAML document such as:
//
//	timeout: 5s
//	slack:
//	  enabled: true
//	  webhook_url: https://hooks.slack.com/services/...
//
// Keys absent from the file keep their environment values.
func loadNotifyFile(path string, dst *NotifyConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read notify config: %w", err)
	}
	if err := yaml.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("parse notify config %s: %w", path, err)
	}
	return nil
}
