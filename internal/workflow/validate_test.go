package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustParse(t *testing.T, data string) *Workflow {
	t.Helper()
	w, err := Parse([]byte(data))
	assert.NoError(t, err)
	return w
}

func issuesOf(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	return verr.Issues
}

func TestWorkflow_Validate(t *testing.T) {
	t.Run("success - full manifest", func(t *testing.T) {
		// act
		err := mustParse(t, ciManifest).Validate()

		// assert
		assert.NoError(t, err)
	})
	t.Run("failure - missing triggers and jobs", func(t *testing.T) {
		// act
		err := mustParse(t, "name: empty\n").Validate()

		// assert
		issues := issuesOf(t, err)
		assert.Contains(t, issues, "on: at least one trigger is required")
		assert.Contains(t, issues, "jobs: at least one job is required")
	})
	t.Run("failure - bad schedule cron", func(t *testing.T) {
		// arrange
		w := mustParse(t, `
on:
  schedule:
    - cron: "0 4 * * 1 *"
jobs:
  a:
    runs-on: x
    steps:
      - run: make
`)

		// act
		err := w.Validate()

		// assert
		issues := issuesOf(t, err)
		assert.Len(t, issues, 1)
		assert.Contains(t, issues[0], "on.schedule[0]")
		assert.Contains(t, issues[0], "expected five fields")
	})
	t.Run("failure - job misconfiguration is reported per issue", func(t *testing.T) {
		// arrange
		w := mustParse(t, `
on: push
jobs:
  a:
    if: "contains(github.unknown, 'x')"
    steps:
      - name: both
        uses: actions/checkout@v4
        run: make
      - name: neither
      - name: inputs without action
        run: make
        with:
          key: value
`)

		// act
		err := w.Validate()

		// assert
		issues := issuesOf(t, err)
		assert.Contains(t, issues, "jobs.a: runs-on is required")
		assert.Contains(t, issues, "jobs.a.steps[0]: uses and run are mutually exclusive")
		assert.Contains(t, issues, "jobs.a.steps[1]: either uses or run is required")
		assert.Contains(t, issues, "jobs.a.steps[2]: with requires uses")
		assert.Contains(t, issues, `jobs.a.if: unsupported context path "github.unknown"`)
	})
	t.Run("failure - unknown matrix axis reference", func(t *testing.T) {
		// arrange
		w := mustParse(t, `
on: push
jobs:
  a:
    runs-on: ${{ matrix.os }}
    steps:
      - run: make
`)

		// act
		err := w.Validate()

		// assert
		issues := issuesOf(t, err)
		assert.Contains(t, issues, `jobs.a.runs-on: references unknown matrix axis "os"`)
	})
	t.Run("failure - duplicate axis value", func(t *testing.T) {
		// arrange
		w := mustParse(t, `
on: push
jobs:
  a:
    runs-on: x
    strategy:
      matrix:
        python: ["3.9", "3.9"]
    steps:
      - run: make
`)

		// act
		err := w.Validate()

		// assert
		issues := issuesOf(t, err)
		assert.Contains(t, issues, `jobs.a.strategy.matrix: axis "python" has duplicate value "3.9"`)
	})
	t.Run("failure - duplicate instantiation names", func(t *testing.T) {
		// arrange
		w := mustParse(t, `
on: push
jobs:
  a:
    name: build ${{ matrix.os }}
    runs-on: x
    strategy:
      matrix:
        os: [linux]
        python: ["3.9", "3.10"]
    steps:
      - run: make
`)

		// act
		err := w.Validate()

		// assert
		issues := issuesOf(t, err)
		assert.Contains(t, issues, `jobs.a: duplicate instantiation name "build linux"`)
	})
	t.Run("failure - unknown needs and cycles", func(t *testing.T) {
		// arrange
		w := mustParse(t, `
on: push
jobs:
  a:
    runs-on: x
    needs: [b, ghost]
    steps:
      - run: make
  b:
    runs-on: x
    needs: a
    steps:
      - run: make
`)

		// act
		err := w.Validate()

		// assert
		issues := issuesOf(t, err)
		assert.Contains(t, issues, `jobs.a: needs unknown job "ghost"`)
		assert.Contains(t, issues, `jobs: needs form a cycle involving "a"`)
	})
	t.Run("failure - malformed secrets reference", func(t *testing.T) {
		// arrange
		w := mustParse(t, `
on: push
jobs:
  a:
    runs-on: x
    env:
      TOKEN: ${{ secrets.my-token }}
    steps:
      - run: make
`)

		// act
		err := w.Validate()

		// assert
		issues := issuesOf(t, err)
		assert.Len(t, issues, 1)
		assert.Contains(t, issues[0], "malformed secrets reference")
	})
	t.Run("failure - bad uses reference", func(t *testing.T) {
		// arrange
		w := mustParse(t, `
on: push
jobs:
  a:
    runs-on: x
    steps:
      - uses: checkout-without-owner
`)

		// act
		err := w.Validate()

		// assert
		issues := issuesOf(t, err)
		assert.Len(t, issues, 1)
		assert.Contains(t, issues[0], "uses must look like")
	})
}
