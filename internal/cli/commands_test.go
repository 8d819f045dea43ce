package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeData unmarshals the data field of a JSON response into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if v != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

func TestValidate_ValidCatalog(t *testing.T) {
	for _, path := range []string{monitorCatalog, monitorTOML} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			out, err := executeCommand(t, "validate", path)
			require.NoError(t, err)
			assert.Contains(t, out, "✓ Catalog valid (5 services)")
		})
	}
}

func TestValidate_InvertedRange(t *testing.T) {
	out, err := executeCommand(t, "validate", brokenCatalog, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "E202", result.Errors[0].Code)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "sip_echo", result.Errors[0].Name)
	assert.Greater(t, result.Errors[0].Line, 0)
}

func TestValidate_MissingCatalog(t *testing.T) {
	out, err := executeCommand(t, "validate", filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}

func TestValidate_UnknownService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[service]]\nname = \"nope\"\nstart_oen = 1\nend_oen = 1\ncall_type = \"fast\"\n"), 0644))

	out, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E008")
}

func TestTable_MonitorCatalog(t *testing.T) {
	out, err := executeCommand(t, "table", monitorCatalog, "--format", "json")
	require.NoError(t, err)

	var result TableResult
	decodeData(t, out, &result)
	assert.Equal(t, 5, result.Descriptors)
	assert.Len(t, result.Slots, 31)
	assert.Len(t, result.Fingerprint, 64)
	assert.Empty(t, result.InitFailed)

	first := result.Slots[0]
	assert.Equal(t, "tos_yield", first.Name)
	assert.Equal(t, 50, first.Key)
	last := result.Slots[len(result.Slots)-1]
	assert.Equal(t, "tos_fast", last.Name)
	assert.Equal(t, 127, last.Key)
}

func TestTable_SameFingerprintForCUEAndTOML(t *testing.T) {
	cueOut, err := executeCommand(t, "table", monitorCatalog, "--format", "json")
	require.NoError(t, err)
	tomlOut, err := executeCommand(t, "table", monitorTOML, "--format", "json")
	require.NoError(t, err)

	var a, b TableResult
	decodeData(t, cueOut, &a)
	decodeData(t, tomlOut, &b)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.Equal(t, a.Slots, b.Slots)
}

func TestTable_DegradedCatalogKeepsRunning(t *testing.T) {
	out, err := executeCommand(t, "table", degradedCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "faulty: init failed, not registered")
	assert.Contains(t, out, "std_svc")
}

func TestTable_BrokenCatalogHalts(t *testing.T) {
	out, err := executeCommand(t, "table", brokenCatalog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E202]")
}

func TestCall_Resolved(t *testing.T) {
	out, err := executeCommand(t, "call", monitorCatalog, "0x82000000", "1", "2", "3", "0x4", "--format", "json")
	require.NoError(t, err)

	var result CallResult
	decodeData(t, out, &result)
	assert.True(t, result.Resolved)
	assert.Equal(t, "sip_echo", result.Descriptor)
	assert.Equal(t, [4]string{"0x1", "0x2", "0x3", "0x4"}, result.Regs)
	assert.Equal(t, int64(1), result.Seq)
	assert.Equal(t, "non-secure", result.Flags)
}

func TestCall_UnknownText(t *testing.T) {
	out, err := executeCommand(t, "call", monitorCatalog, "0x86000000")
	require.NoError(t, err)
	assert.Contains(t, out, "0x86000000 -> unknown")
	assert.Contains(t, out, "x0 = 0xffffffffffffffff")
}

func TestCall_BadFunctionID(t *testing.T) {
	_, err := executeCommand(t, "call", monitorCatalog, "zzz")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCall_RecordsToDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rtsvc.db")
	_, err := executeCommand(t, "call", monitorCatalog, "0x84000000", "--db", db, "--boot-id", "boot-1")
	require.NoError(t, err)

	out, err := executeCommand(t, "trace", "--db", db, "--format", "json")
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, out, &result)
	assert.Equal(t, "boot-1", result.Boot.ID)
	assert.Len(t, result.Registrations, 5)
	require.Len(t, result.Calls, 1)
	assert.Equal(t, "std_svc", result.Calls[0].Descriptor)
	assert.Equal(t, "0x10001", result.Calls[0].Regs[0])
	assert.Equal(t, map[string]int{"std_svc": 1}, result.Stats.ByDescriptor)
}

func TestRun_Batch(t *testing.T) {
	dir := t.TempDir()
	calls := filepath.Join(dir, "calls.yaml")
	require.NoError(t, os.WriteFile(calls, []byte(`
calls:
  - fid: 0x80000000
    repeat: 10
  - fid: 0xb2000000
    repeat: 5
  - fid: 0x86000000
    secure: true
`), 0644))
	db := filepath.Join(dir, "rtsvc.db")

	out, err := executeCommand(t, "run", monitorCatalog, calls, "--units", "3", "--db", db, "--boot-id", "batch", "--format", "json")
	require.NoError(t, err)

	var result RunResult
	decodeData(t, out, &result)
	assert.Equal(t, "batch", result.BootID)
	assert.Equal(t, 3, result.Units)
	assert.Equal(t, 16, result.Calls)
	assert.Equal(t, 1, result.Unknown)
	assert.Equal(t, map[string]int{"arm_arch": 10, "tos_fast": 5}, result.ByDescriptor)

	out, err = executeCommand(t, "trace", "--db", db, "--boot", "batch", "--format", "json")
	require.NoError(t, err)
	var trace TraceResult
	decodeData(t, out, &trace)
	assert.Len(t, trace.Calls, 16)
	assert.Equal(t, 1, trace.Stats.Unknown)
}

func TestRun_RejectsUnknownFields(t *testing.T) {
	calls := filepath.Join(t.TempDir(), "calls.yaml")
	require.NoError(t, os.WriteFile(calls, []byte("calls:\n  - fid: 1\n    repaet: 2\n"), 0644))

	_, err := executeCommand(t, "run", monitorCatalog, calls)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_BadUnits(t *testing.T) {
	_, err := executeCommand(t, "run", monitorCatalog, "calls.yaml", "--units", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_EmptyDatabase(t *testing.T) {
	out, err := executeCommand(t, "trace", "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No boots recorded.")
}

func TestTrace_UnknownBoot(t *testing.T) {
	_, err := executeCommand(t, "trace", "--db", filepath.Join(t.TempDir(), "empty.db"), "--boot", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_ListBoots(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rtsvc.db")
	for _, id := range []string{"b1", "b2"} {
		_, err := executeCommand(t, "call", monitorCatalog, "0x80000000", "--db", db, "--boot-id", id)
		require.NoError(t, err)
	}

	out, err := executeCommand(t, "trace", "--db", db, "--list", "--format", "json")
	require.NoError(t, err)
	var boots []BootEntry
	decodeData(t, out, &boots)
	require.Len(t, boots, 2)
	assert.Equal(t, "b1", boots[0].ID)
	assert.Equal(t, "b2", boots[1].ID)
	assert.Equal(t, boots[0].Fingerprint, boots[1].Fingerprint)
}

func TestTest_HarnessScenarios(t *testing.T) {
	out, err := executeCommand(t, "test", "../harness/testdata/scenarios", "--golden", "../harness/testdata/golden")
	require.NoError(t, err, "output: %s", out)
	assert.Contains(t, out, "✓ overlap_last_wins")
	assert.Contains(t, out, "6 passed, 0 failed, 6 total")
}

func TestTest_FilterAndUpdate(t *testing.T) {
	golden := t.TempDir()
	out, err := executeCommand(t, "test", "../harness/testdata/scenarios", "--golden", golden, "--filter", "init_*", "--update", "--format", "json")
	require.NoError(t, err)

	var result TestResult
	decodeData(t, out, &result)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)

	written, err := os.ReadFile(filepath.Join(golden, "init_only_unknown.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/init_only_unknown.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))
}

func TestTest_GoldenMismatchFails(t *testing.T) {
	golden := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(golden, "init_only_unknown.golden"), []byte("{}"), 0644))

	out, err := executeCommand(t, "test", "../harness/testdata/scenarios", "--golden", golden, "--filter", "init_only_unknown")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := executeCommand(t, "test", filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
