package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/taxautomation/taxbot/internal/model"
)

// ConfigError indicates a state's rule file is missing, unreadable, or fails
// validation. It is fatal for that state only; other states still load.
type ConfigError struct {
	StateCode string
	Path      string
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s (%s): %v", e.StateCode, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads and validates the rule file for one state code. Rule files live
// at <dir>/<lowercase code>.yaml.
func Load(dir, code string) (*model.StateConfig, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	path := filepath.Join(dir, strings.ToLower(code)+".yaml")

	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{StateCode: code, Path: path, Err: eris.Wrap(err, "registry: open rule file")}
	}
	defer f.Close()

	var cfg model.StateConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigError{StateCode: code, Path: path, Err: eris.Wrap(err, "registry: decode rule file")}
	}

	cfg.ApplyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, &ConfigError{StateCode: code, Path: path, Err: err}
	}
	if !strings.EqualFold(cfg.StateCode, code) {
		return nil, &ConfigError{StateCode: code, Path: path,
			Err: eris.Errorf("registry: state_code %q does not match file for %q", cfg.StateCode, code)}
	}

	zap.L().Debug("registry: loaded state rules",
		zap.String("state", cfg.StateCode),
		zap.Int("backup_urls", len(cfg.BackupURLs)),
		zap.Int("included_fields", len(cfg.IncludedFields)),
	)
	return &cfg, nil
}

// LoadAll reads every rule file in dir, sorted by state code. Malformed files
// are skipped with a warning so one bad file cannot hide the rest.
func LoadAll(dir string) ([]model.StateConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read rules dir %s", dir)
	}

	seen := make(map[string]string)
	var configs []model.StateConfig
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		code := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		cfg, err := Load(dir, code)
		if err != nil {
			zap.L().Warn("registry: skipping malformed rule file",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		if prev, dup := seen[cfg.StateCode]; dup {
			zap.L().Warn("registry: skipping duplicate state code",
				zap.String("state", cfg.StateCode),
				zap.String("file", entry.Name()),
				zap.String("kept", prev),
			)
			continue
		}
		seen[cfg.StateCode] = entry.Name()
		configs = append(configs, *cfg)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].StateCode < configs[j].StateCode })
	return configs, nil
}

func validate(cfg *model.StateConfig) error {
	if cfg.StateName == "" {
		return eris.New("registry: state_name is required")
	}
	if len(cfg.StateCode) != 2 || cfg.StateCode != strings.ToUpper(cfg.StateCode) {
		return eris.Errorf("registry: state_code %q must be a two-letter uppercase identifier", cfg.StateCode)
	}
	for _, r := range cfg.StateCode {
		if r < 'A' || r > 'Z' {
			return eris.Errorf("registry: state_code %q must be a two-letter uppercase identifier", cfg.StateCode)
		}
	}
	if cfg.BaseURL == "" {
		return eris.New("registry: base_url is required")
	}
	if cfg.TaxDefinitionsURL == "" {
		return eris.New("registry: tax_definitions_url is required")
	}
	if len(cfg.IncludedFields) == 0 {
		return eris.New("registry: included_fields must not be empty")
	}
	for _, f := range cfg.IncludedFields {
		if !f.Known() {
			return eris.Errorf("registry: unknown tax field %q (recognized: ENI, FDM, Capital)", f)
		}
	}
	return nil
}
