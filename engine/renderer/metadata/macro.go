package metadata

import (
	"strings"

	"golang.org/x/exp/slices"
)

/** @brief A preprocessor definition used to select a shader permutation. */
type ShaderMacro struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// MacroSet is an ordered list of macro definitions with unique names.
type MacroSet []ShaderMacro

// Set defines or redefines name, keeping the position of an existing definition.
func (ms MacroSet) Set(name, value string) MacroSet {
	for i := range ms {
		if ms[i].Name == name {
			out := ms.Clone()
			out[i].Value = value
			return out
		}
	}
	return append(ms.Clone(), ShaderMacro{Name: name, Value: value})
}

// Remove drops the definition of name if present.
func (ms MacroSet) Remove(name string) MacroSet {
	out := make(MacroSet, 0, len(ms))
	for _, m := range ms {
		if m.Name != name {
			out = append(out, m)
		}
	}
	return out
}

func (ms MacroSet) Get(name string) (string, bool) {
	for _, m := range ms {
		if m.Name == name {
			return m.Value, true
		}
	}
	return "", false
}

func (ms MacroSet) Defined(name string) bool {
	_, ok := ms.Get(name)
	return ok
}

func (ms MacroSet) Clone() MacroSet {
	if ms == nil {
		return nil
	}
	out := make(MacroSet, len(ms))
	copy(out, ms)
	return out
}

// Sorted returns a copy ordered by name, then value.
func (ms MacroSet) Sorted() MacroSet {
	out := ms.Clone()
	slices.SortFunc(out, func(a, b ShaderMacro) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	return out
}

// Merge returns ms with every definition of other applied on top.
func (ms MacroSet) Merge(other MacroSet) MacroSet {
	out := ms.Clone()
	for _, m := range other {
		out = out.Set(m.Name, m.Value)
	}
	return out
}

func (ms MacroSet) String() string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.Name + "=" + m.Value
	}
	return strings.Join(parts, ";")
}
