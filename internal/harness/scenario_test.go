package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/partial_then_terminal.yaml")
	require.NoError(t, err)

	assert.Equal(t, "partial_then_terminal", scenario.Name)
	assert.Equal(t, "c1", scenario.CellID)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, "continue", scenario.Steps[0].Expect)
	require.NotNil(t, scenario.Steps[0].Record)
	assert.Equal(t, "partial", scenario.Steps[0].Record.Output)
	require.NotNil(t, scenario.Final)
	assert.Equal(t, []string{"42"}, scenario.Final.Outputs)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "unknown top-level key"
cell_id: c1
step:
  - record:
      cell_id: c1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingCellID(t *testing.T) {
	path := writeScenario(t, `
name: no_cell
description: "missing cell_id"
steps:
  - record:
      cell_id: c1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell_id is required")
}

func TestLoadScenario_StepNeedsRecordOrRecords(t *testing.T) {
	path := writeScenario(t, `
name: empty_step
description: "step with neither record nor records"
cell_id: c1
steps:
  - expect: skip
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of record or records is required")
}

func TestLoadScenario_RecordAndRecordsExclusive(t *testing.T) {
	path := writeScenario(t, `
name: both
description: "step with both record and records"
cell_id: c1
steps:
  - record:
      cell_id: c1
    records:
      - cell_id: c1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestLoadScenario_UnknownExpect(t *testing.T) {
	path := writeScenario(t, `
name: bad_expect
description: "unknown expect value"
cell_id: c1
steps:
  - record:
      cell_id: c1
    expect: finished
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown expect "finished"`)
}
