package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix_Expand(t *testing.T) {
	t.Run("success - nil matrix expands to a single empty combination", func(t *testing.T) {
		// act
		var m *Matrix
		combos, err := m.Expand()

		// assert
		assert.NoError(t, err)
		assert.Len(t, combos, 1)
		assert.Empty(t, combos[0])
	})
	t.Run("success - cartesian product in declared order", func(t *testing.T) {
		// arrange
		m := &Matrix{Axes: []Axis{
			{Name: "os", Values: []string{"linux", "macos"}},
			{Name: "python", Values: []string{"3.9", "3.10"}},
		}}

		// act
		combos, err := m.Expand()

		// assert
		assert.NoError(t, err)
		assert.Equal(t, []Combination{
			{{Axis: "os", Value: "linux"}, {Axis: "python", Value: "3.9"}},
			{{Axis: "os", Value: "linux"}, {Axis: "python", Value: "3.10"}},
			{{Axis: "os", Value: "macos"}, {Axis: "python", Value: "3.9"}},
			{{Axis: "os", Value: "macos"}, {Axis: "python", Value: "3.10"}},
		}, combos)
	})
	t.Run("success - exclude removes partial matches", func(t *testing.T) {
		// arrange
		m := &Matrix{
			Axes: []Axis{
				{Name: "os", Values: []string{"linux", "macos"}},
				{Name: "python", Values: []string{"3.9", "3.10"}},
			},
			Exclude: []Combination{{{Axis: "os", Value: "macos"}}},
		}

		// act
		combos, err := m.Expand()

		// assert
		assert.NoError(t, err)
		assert.Len(t, combos, 2)
		for _, combo := range combos {
			os, _ := combo.Get("os")
			assert.Equal(t, "linux", os)
		}
	})
	t.Run("success - include extends matching combinations", func(t *testing.T) {
		// arrange
		m := &Matrix{
			Axes: []Axis{{Name: "os", Values: []string{"linux", "macos"}}},
			Include: []Combination{
				{{Axis: "os", Value: "linux"}, {Axis: "cc", Value: "gcc"}},
			},
		}

		// act
		combos, err := m.Expand()

		// assert
		assert.NoError(t, err)
		assert.Len(t, combos, 2)
		cc, ok := combos[0].Get("cc")
		assert.True(t, ok)
		assert.Equal(t, "gcc", cc)
		_, ok = combos[1].Get("cc")
		assert.False(t, ok)
	})
	t.Run("success - include without axis keys extends every combination", func(t *testing.T) {
		// arrange
		m := &Matrix{
			Axes:    []Axis{{Name: "os", Values: []string{"linux", "macos"}}},
			Include: []Combination{{{Axis: "experimental", Value: "true"}}},
		}

		// act
		combos, err := m.Expand()

		// assert
		assert.NoError(t, err)
		assert.Len(t, combos, 2)
		for _, combo := range combos {
			v, ok := combo.Get("experimental")
			assert.True(t, ok)
			assert.Equal(t, "true", v)
		}
	})
	t.Run("success - unmatched include becomes a standalone combination", func(t *testing.T) {
		// arrange
		m := &Matrix{
			Axes: []Axis{{Name: "os", Values: []string{"linux", "macos"}}},
			Include: []Combination{
				{{Axis: "os", Value: "windows"}, {Axis: "experimental", Value: "true"}},
			},
		}

		// act
		combos, err := m.Expand()

		// assert
		assert.NoError(t, err)
		assert.Len(t, combos, 3)
		os, _ := combos[2].Get("os")
		assert.Equal(t, "windows", os)
	})
	t.Run("success - include-only matrix", func(t *testing.T) {
		// arrange
		m := &Matrix{Include: []Combination{
			{{Axis: "os", Value: "linux"}, {Axis: "python", Value: "3.9"}},
			{{Axis: "os", Value: "macos"}, {Axis: "python", Value: "3.10"}},
		}}

		// act
		combos, err := m.Expand()

		// assert
		assert.NoError(t, err)
		assert.Len(t, combos, 2)
	})
	t.Run("failure - exclude references unknown axis", func(t *testing.T) {
		// arrange
		m := &Matrix{
			Axes:    []Axis{{Name: "os", Values: []string{"linux"}}},
			Exclude: []Combination{{{Axis: "arch", Value: "arm64"}}},
		}

		// act
		_, err := m.Expand()

		// assert
		assert.ErrorContains(t, err, `unknown axis "arch"`)
	})
	t.Run("failure - nothing remains after exclude", func(t *testing.T) {
		// arrange
		m := &Matrix{
			Axes:    []Axis{{Name: "os", Values: []string{"linux"}}},
			Exclude: []Combination{{{Axis: "os", Value: "linux"}}},
		}

		// act
		_, err := m.Expand()

		// assert
		assert.ErrorContains(t, err, "no combinations remain")
	})
	t.Run("failure - duplicate combinations", func(t *testing.T) {
		// arrange
		m := &Matrix{Include: []Combination{
			{{Axis: "os", Value: "linux"}},
			{{Axis: "os", Value: "linux"}},
		}}

		// act
		_, err := m.Expand()

		// assert
		assert.ErrorContains(t, err, "duplicate combination")
	})
	t.Run("failure - expansion over the combination limit", func(t *testing.T) {
		// arrange
		wide := func(n int) []string {
			values := make([]string, n)
			for i := range values {
				values[i] = fmt.Sprintf("v%d", i)
			}
			return values
		}
		m := &Matrix{Axes: []Axis{
			{Name: "a", Values: wide(17)},
			{Name: "b", Values: wide(16)},
		}}

		// act
		_, err := m.Expand()

		// assert
		assert.ErrorContains(t, err, "limit is 256")
	})
}

func TestCombination_Render(t *testing.T) {
	t.Run("success - substitutes matrix references", func(t *testing.T) {
		// arrange
		combo := Combination{{Axis: "os", Value: "ubuntu-latest"}, {Axis: "python", Value: "3.10"}}

		// act / assert
		assert.Equal(t, "ubuntu-latest", combo.Render("${{ matrix.os }}"))
		assert.Equal(t, "py3.10 on ubuntu-latest", combo.Render("py${{matrix.python}} on ${{  matrix.os  }}"))
		assert.Equal(t, "plain", combo.Render("plain"))
	})
	t.Run("success - unknown axis renders empty", func(t *testing.T) {
		// arrange
		combo := Combination{{Axis: "os", Value: "linux"}}

		// act / assert
		assert.Equal(t, "node", combo.Render("node${{ matrix.node }}"))
	})
}

func TestCombination_Key(t *testing.T) {
	t.Run("success - key is independent of pair order", func(t *testing.T) {
		// arrange
		a := Combination{{Axis: "os", Value: "linux"}, {Axis: "python", Value: "3.9"}}
		b := Combination{{Axis: "python", Value: "3.9"}, {Axis: "os", Value: "linux"}}

		// act / assert
		assert.Equal(t, a.Key(), b.Key())
		assert.Equal(t, "linux, 3.9", a.String())
	})
}
