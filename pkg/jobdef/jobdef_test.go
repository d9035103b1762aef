package jobdef

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iddaa-lens/jobrunner/pkg/jobs"
)

const sample = `
defaults:
  impl: builtin.steps
  params:
    interval: 1s
    steps: 10
categories:
  Export:
    params:
      steps: 20
      message: "exported %d of %d"
    jobs:
      Full Export:
        params:
          steps: 60
      partial: {}
  backup:
    impl: builtin.noop
    jobs:
      verify:
        impl: builtin.fail
        params:
          fail_at: 75
          dry_run: true
      nightly:
        params:
          note: ~
`

func mustParse(t *testing.T, doc string) *Definitions {
	t.Helper()
	defs, err := Parse([]byte(doc))
	require.NoError(t, err)
	return defs
}

func TestResolveImplementation(t *testing.T) {
	defs := mustParse(t, sample)

	tests := []struct {
		category string
		jobType  string
		want     string
	}{
		{"Export", "Full Export", "builtin.steps"},
		{"export", "full-export", "builtin.steps"},
		{"backup", "verify", "builtin.fail"},
		{"backup", "nightly", "builtin.noop"},
	}

	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.jobType, func(t *testing.T) {
			impl, err := defs.ResolveImplementation(tt.category, tt.jobType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, impl)
		})
	}
}

func TestResolveInitParams(t *testing.T) {
	defs := mustParse(t, sample)

	params, err := defs.ResolveInitParams("export", "full export")
	require.NoError(t, err)
	assert.Equal(t, jobs.ParamSet{
		"interval": "1s",
		"steps":    "60",
		"message":  "exported %d of %d",
	}, params)

	params, err = defs.ResolveInitParams("export", "partial")
	require.NoError(t, err)
	assert.Equal(t, "20", params["steps"])

	params, err = defs.ResolveInitParams("backup", "verify")
	require.NoError(t, err)
	assert.Equal(t, 75, params.Int("fail_at", 0))
	assert.True(t, params.Bool("dry_run", false))

	params, err = defs.ResolveInitParams("backup", "nightly")
	require.NoError(t, err)
	assert.Equal(t, "", params["note"])
}

func TestResolveMissingPair(t *testing.T) {
	defs := mustParse(t, sample)

	_, err := defs.ResolveImplementation("reports", "daily")
	assert.ErrorIs(t, err, ErrDefinitionNotFound)

	_, err = defs.ResolveImplementation("export", "daily")
	assert.ErrorIs(t, err, ErrDefinitionNotFound)

	_, err = defs.ResolveInitParams("export", "daily")
	assert.ErrorIs(t, err, ErrDefinitionNotFound)
}

func TestResolveWithoutImplementation(t *testing.T) {
	defs := mustParse(t, `
categories:
  export:
    jobs:
      full: {}
`)

	_, err := defs.ResolveImplementation("export", "full")
	assert.ErrorIs(t, err, ErrNoImplementation)
	assert.ErrorIs(t, err, ErrDefinitionNotFound)
	assert.Empty(t, defs.Definitions())
}

func TestParseRejectsCollisions(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "categories",
			doc: `
categories:
  Export: {}
  export: {}
`,
		},
		{
			name: "job types",
			doc: `
categories:
  export:
    jobs:
      Full Export: {}
      full-export: {}
`,
		},
		{
			name: "empty key",
			doc: `
categories:
  "!!!":
    jobs: {}
`,
		},
		{
			name: "invalid yaml",
			doc:  "categories: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestDefinitionsSorted(t *testing.T) {
	defs := mustParse(t, sample)

	var pairs []string
	for _, d := range defs.Definitions() {
		pairs = append(pairs, d.Category+"/"+d.JobType)
	}
	assert.Equal(t, []string{
		"Export/Full Export",
		"Export/partial",
		"backup/nightly",
		"backup/verify",
	}, pairs)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	defs, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, defs.Definitions(), 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBundledDefinitions(t *testing.T) {
	defs, err := Load(filepath.Join("..", "..", "configs", "jobs.yaml"))
	require.NoError(t, err)

	impl, err := defs.ResolveImplementation("export", "full")
	require.NoError(t, err)
	assert.Equal(t, "builtin.steps", impl)

	impl, err = defs.ResolveImplementation("maintenance", "ping")
	require.NoError(t, err)
	assert.Equal(t, "builtin.noop", impl)

	_, err = defs.ResolveImplementation("export", "nope")
	assert.True(t, errors.Is(err, ErrDefinitionNotFound))
}
