package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rtsvc/internal/smc"
	"github.com/roach88/rtsvc/internal/testutil"
)

// Scenario is one conformance case: a catalog to boot and the calls to
// issue against the resulting router.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// BootID pins the boot identifier stamped on call records.
	// Empty means testutil.DefaultBootID.
	BootID string `yaml:"boot_id,omitempty"`

	// Catalog lists stub services in registration order.
	Catalog []ServiceStep `yaml:"catalog,omitempty"`

	// CatalogFile loads a catalog file against the built-in services
	// instead of Catalog. Relative paths resolve against the scenario file.
	CatalogFile string `yaml:"catalog_file,omitempty"`

	// Calls are issued in order after a successful boot.
	Calls []CallStep `yaml:"calls,omitempty"`

	// ExpectHalt is the error code the boot must halt with. Empty means the
	// boot must succeed.
	ExpectHalt string `yaml:"expect_halt,omitempty"`
}

// ServiceStep declares one stub service.
type ServiceStep struct {
	Name     string `yaml:"name"`
	StartOEN int    `yaml:"start_oen"`
	EndOEN   int    `yaml:"end_oen"`
	CallType string `yaml:"call_type"`

	// Init is "none", "ok" or "fail". Empty means "none".
	Init string `yaml:"init,omitempty"`

	// Handle defaults to true. False declares an init-only service.
	Handle *bool `yaml:"handle,omitempty"`

	// Result is what the stub handler returns.
	Result uint64 `yaml:"result,omitempty"`
}

// CallStep is one monitor call. The identifier is either FID or the
// OEN/CallType/Number triple.
type CallStep struct {
	FID      *uint32  `yaml:"fid,omitempty"`
	OEN      *int     `yaml:"oen,omitempty"`
	CallType string   `yaml:"call_type,omitempty"`
	Number   uint16   `yaml:"number,omitempty"`
	SMC64    bool     `yaml:"smc64,omitempty"`
	Args     []uint64 `yaml:"args,omitempty"`

	// NonSecure marks the call as issued from the normal world.
	NonSecure bool `yaml:"non_secure,omitempty"`

	// Expect is the descriptor name that must handle the call, or
	// "unknown" when no handler may run and the caller must see
	// smc.Unknown.
	Expect string `yaml:"expect"`

	// ExpectResult optionally pins the value returned in x0.
	ExpectResult *uint64 `yaml:"expect_result,omitempty"`
}

// ExpectUnknown is the CallStep.Expect value for unclaimed calls.
const ExpectUnknown = "unknown"

// FunctionID resolves the identifier the step issues.
func (c CallStep) FunctionID() (smc.FunctionID, error) {
	if c.FID != nil {
		return smc.FunctionID(*c.FID), nil
	}
	if c.OEN == nil {
		return 0, fmt.Errorf("fid or oen is required")
	}
	t, err := smc.ParseCallType(c.CallType)
	if err != nil {
		return 0, err
	}
	return smc.NewFunctionID(t, c.SMC64, smc.OEN(*c.OEN), c.Number), nil
}

func (c CallStep) flags() smc.Flags {
	if c.NonSecure {
		return smc.FromNonSecure
	}
	return smc.FromSecure
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.CatalogFile != "" && !filepath.IsAbs(scenario.CatalogFile) {
		scenario.CatalogFile = filepath.Join(filepath.Dir(path), scenario.CatalogFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.CatalogFile != "" && len(s.Catalog) > 0 {
		return fmt.Errorf("catalog and catalog_file are mutually exclusive")
	}
	if s.CatalogFile != "" {
		if _, err := os.Stat(s.CatalogFile); err != nil {
			return fmt.Errorf("catalog file not found: %s", s.CatalogFile)
		}
	}

	for i, svc := range s.Catalog {
		if svc.Name == "" {
			return fmt.Errorf("catalog[%d]: name is required", i)
		}
		if svc.StartOEN < 0 || svc.StartOEN > 255 || svc.EndOEN < 0 || svc.EndOEN > 255 {
			return fmt.Errorf("catalog[%d]: oen out of range 0..255", i)
		}
		switch svc.Init {
		case "", testutil.InitNone, testutil.InitOK, testutil.InitFail:
		default:
			return fmt.Errorf("catalog[%d]: init must be none, ok or fail, got %q", i, svc.Init)
		}
	}

	if s.ExpectHalt != "" && len(s.Calls) > 0 {
		return fmt.Errorf("calls cannot run after an expected halt")
	}
	for i, c := range s.Calls {
		if c.FID != nil && c.OEN != nil {
			return fmt.Errorf("calls[%d]: fid and oen are mutually exclusive", i)
		}
		if c.OEN != nil && (*c.OEN < 0 || *c.OEN >= smc.OENLimit) {
			return fmt.Errorf("calls[%d]: oen must be below %d", i, smc.OENLimit)
		}
		if _, err := c.FunctionID(); err != nil {
			return fmt.Errorf("calls[%d]: %w", i, err)
		}
		if len(c.Args) > smc.NumGPRegs-1 {
			return fmt.Errorf("calls[%d]: at most %d args", i, smc.NumGPRegs-1)
		}
		if c.Expect == "" {
			return fmt.Errorf("calls[%d]: expect is required", i)
		}
	}
	return nil
}
