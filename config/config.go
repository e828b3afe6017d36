// config/config.go
//
// Runtime configuration for the consolidation pipeline. Everything that
// describes the shape of the inputs (file patterns, header offsets, sheet
// names) or the business tables (vendor aliases, objectives) lives here so
// a new month's quirks can be handled without a rebuild.

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/IamNiko/sales-app/core"
)

const defaultConfigYAML = `# salesetl configuration
files:
  billing: 'factu.*\.txt$'
  clients: 'Clientes_master.*\.xlsx$'
  products: 'CLASIFICACION DE PRODUCTOS.*\.xlsx$'
  progress: 'Avance x Cliente-Vendedor.*\.xlsx$'
  launches: 'Compradores Lanzamientos.*\.xlsx$'

# Zero-based header rows for sheets with a fixed layout.
headers:
  progress: 1
  products: 6
  category_sheets: 2
  launches: 1

category_sheets:
  - HB
  - SCH
  - UNT
  - RB
  - SJ
  - GRASA
  - PICADA
  - CHORIZOS
  - PAPAS
  - ATUN
  - CORTES CARNE

launch_skip_sheets:
  - DINAMICA ENERO 26
  - DINAMICA

premium_subcategory: PREMIUM

# Overwrite snapshot current sales with the billing ledger quantity.
sync_sales_from_ledger: false

vendor_aliases:
  - obsolete: "100075864"
    canonical: "100067806"
    canonical_name: GENTILE NICOLAS
  - obsolete: "100075865"
    canonical: "100067806"
    canonical_name: GENTILE NICOLAS
  - obsolete: "100089597"
    canonical: "100067806"
    canonical_name: GENTILE NICOLAS

objectives:
  - vendor_code: "100067806"
    vendor_name: GENTILE NICOLAS
    period: "2026-02"
    target_amount: 499163842
    target_premium_amount: 55050592
    target_quantity: 76942
    target_subcategory_quantity: 8000
`

// Files holds case-insensitive regular expressions matched against file
// names in the input directory.
type Files struct {
	Billing  string `yaml:"billing"`
	Clients  string `yaml:"clients"`
	Products string `yaml:"products"`
	Progress string `yaml:"progress"`
	Launches string `yaml:"launches"`
}

// Headers holds zero-based header row offsets.
type Headers struct {
	Progress       int `yaml:"progress"`
	Products       int `yaml:"products"`
	CategorySheets int `yaml:"category_sheets"`
	Launches       int `yaml:"launches"`
}

// VendorAlias maps an obsolete vendor code to its canonical identity.
type VendorAlias struct {
	Obsolete      string `yaml:"obsolete"`
	Canonical     string `yaml:"canonical"`
	CanonicalName string `yaml:"canonical_name"`
}

// Objective is one vendor's monthly target as written in YAML.
type Objective struct {
	VendorCode                string          `yaml:"vendor_code"`
	VendorName                string          `yaml:"vendor_name"`
	Period                    string          `yaml:"period"`
	TargetAmount              decimal.Decimal `yaml:"target_amount"`
	TargetPremiumAmount       decimal.Decimal `yaml:"target_premium_amount"`
	TargetQuantity            decimal.Decimal `yaml:"target_quantity"`
	TargetSubcategoryQuantity decimal.Decimal `yaml:"target_subcategory_quantity"`
}

// Config is the full pipeline configuration.
type Config struct {
	Files               Files         `yaml:"files"`
	Headers             Headers       `yaml:"headers"`
	CategorySheets      []string      `yaml:"category_sheets"`
	LaunchSkipSheets    []string      `yaml:"launch_skip_sheets"`
	PremiumSubcategory  string        `yaml:"premium_subcategory"`
	SyncSalesFromLedger bool          `yaml:"sync_sales_from_ledger"`
	VendorAliases       []VendorAlias `yaml:"vendor_aliases"`
	Objectives          []Objective   `yaml:"objectives"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &cfg); err != nil {
		panic(fmt.Sprintf("config: invalid default configuration: %v", err))
	}
	return &cfg
}

// Load reads path and overlays it on the defaults. An empty path returns
// the defaults. Keys absent from the file keep their default value; lists
// present in the file replace the default list.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks patterns, offsets and the business tables.
func (c *Config) Validate() error {
	var errs []error

	patterns := map[string]string{
		"billing":  c.Files.Billing,
		"clients":  c.Files.Clients,
		"products": c.Files.Products,
		"progress": c.Files.Progress,
		"launches": c.Files.Launches,
	}
	for name, p := range patterns {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("files.%s: pattern is required", name))
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("files.%s: %w", name, err))
		}
	}

	if c.Headers.Progress < 0 || c.Headers.Products < 0 || c.Headers.CategorySheets < 0 || c.Headers.Launches < 0 {
		errs = append(errs, errors.New("headers: offsets must be zero or positive"))
	}

	for i, a := range c.VendorAliases {
		if a.Obsolete == "" || a.Canonical == "" {
			errs = append(errs, fmt.Errorf("vendor_aliases[%d]: obsolete and canonical are required", i))
		}
	}

	for i, o := range c.Objectives {
		if o.VendorCode == "" {
			errs = append(errs, fmt.Errorf("objectives[%d]: vendor_code is required", i))
		}
		if _, err := core.ParsePeriod(o.Period); err != nil {
			errs = append(errs, fmt.Errorf("objectives[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// VendorObjectives converts the configured objectives to the data model.
func (c *Config) VendorObjectives() []core.VendorObjective {
	out := make([]core.VendorObjective, 0, len(c.Objectives))
	for _, o := range c.Objectives {
		out = append(out, core.VendorObjective{
			VendorCode:                o.VendorCode,
			VendorName:                o.VendorName,
			Period:                    core.Period(o.Period),
			TargetAmount:              o.TargetAmount,
			TargetPremiumAmount:       o.TargetPremiumAmount,
			TargetQuantity:            o.TargetQuantity,
			TargetSubcategoryQuantity: o.TargetSubcategoryQuantity,
		})
	}
	return out
}
