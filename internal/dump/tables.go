package dump

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type trackedTablesFile struct {
	Tables []string `yaml:"tables"`
}

// LoadTrackedTables reads the optional YAML file restricting which tables
// the dump layer may touch. An empty path means no restriction.
func LoadTrackedTables(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tracked tables file")
	}

	var f trackedTablesFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse tracked tables file")
	}
	return f.Tables, nil
}
