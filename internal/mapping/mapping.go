// Package mapping holds the immutable lookup tables that translate legacy
// labels into the canonical vocabulary: fee-type aliases, per-table category
// columns, admission descriptions and year-to-session fallbacks.
//
// The built-in tables are embedded from defaults.yaml. An operator file with
// the same shape may be layered on top with Load.
package mapping

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/sdvmigrate/internal/clean"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidMappings is returned when a mappings document cannot be used.
var ErrInvalidMappings = errors.New("invalid mappings")

// File is the YAML shape of a mappings document.
type File struct {
	FeeTypes            map[string][]string `yaml:"fee_types"`
	Descriptions        map[string]string   `yaml:"descriptions"`
	Columns             map[string][]string `yaml:"columns"`
	ConsolidatedFeeType string              `yaml:"consolidated_fee_type"`
	BillYearSessions    map[string]string   `yaml:"bill_year_sessions"`
}

// Set is a resolved, read-only mappings table. The zero value is not usable;
// obtain one from Default, Load or Parse.
type Set struct {
	aliases      map[string]string // normalized legacy label -> canonical
	canonical    []string
	descriptions map[string]string // normalized description -> canonical
	columns      map[string][]string
	consolidated string
	billYears    map[string]string
}

// Default returns the built-in mappings.
func Default() *Set {
	s, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("mapping: embedded defaults: %v", err))
	}
	return s
}

// Load returns the built-in mappings overlaid with the document at path.
// An empty path returns Default().
//
// Overlay rules: fee-type aliases, descriptions and year fallbacks are merged
// key by key; a table listed under columns replaces the built-in column list
// for that table; a non-empty consolidated_fee_type replaces the default.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidMappings, path, err)
	}

	var base, overlay File
	if err := yaml.Unmarshal(defaultsYAML, &base); err != nil {
		return nil, fmt.Errorf("%w: embedded defaults: %v", ErrInvalidMappings, err)
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidMappings, path, err)
	}

	merged := merge(base, overlay)
	return build(merged)
}

// Parse builds a Set from a complete mappings document.
func Parse(data []byte) (*Set, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMappings, err)
	}
	return build(f)
}

func merge(base, overlay File) File {
	out := File{
		FeeTypes:            make(map[string][]string, len(base.FeeTypes)),
		Descriptions:        make(map[string]string, len(base.Descriptions)),
		Columns:             make(map[string][]string, len(base.Columns)),
		ConsolidatedFeeType: base.ConsolidatedFeeType,
		BillYearSessions:    make(map[string]string, len(base.BillYearSessions)),
	}

	for k, v := range base.FeeTypes {
		out.FeeTypes[k] = append(out.FeeTypes[k], v...)
	}
	for k, v := range overlay.FeeTypes {
		out.FeeTypes[k] = append(out.FeeTypes[k], v...)
	}
	for k, v := range base.Descriptions {
		out.Descriptions[k] = v
	}
	for k, v := range overlay.Descriptions {
		out.Descriptions[k] = v
	}
	for k, v := range base.Columns {
		out.Columns[k] = v
	}
	for k, v := range overlay.Columns {
		out.Columns[k] = v
	}
	for k, v := range base.BillYearSessions {
		out.BillYearSessions[k] = v
	}
	for k, v := range overlay.BillYearSessions {
		out.BillYearSessions[k] = v
	}
	if overlay.ConsolidatedFeeType != "" {
		out.ConsolidatedFeeType = overlay.ConsolidatedFeeType
	}

	return out
}

func build(f File) (*Set, error) {
	s := &Set{
		aliases:      make(map[string]string),
		descriptions: make(map[string]string, len(f.Descriptions)),
		columns:      make(map[string][]string, len(f.Columns)),
		consolidated: strings.TrimSpace(f.ConsolidatedFeeType),
		billYears:    make(map[string]string, len(f.BillYearSessions)),
	}

	var errs []string

	// Canonical names are processed in sorted order so conflict messages
	// are stable.
	names := make([]string, 0, len(f.FeeTypes))
	for name := range f.FeeTypes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		canonical := strings.TrimSpace(name)
		if canonical == "" {
			errs = append(errs, "fee_types: empty canonical name")
			continue
		}
		s.canonical = append(s.canonical, canonical)

		for _, alias := range append([]string{canonical}, f.FeeTypes[name]...) {
			key := normalize(alias)
			if key == "" {
				continue
			}
			if prev, ok := s.aliases[key]; ok && prev != canonical {
				errs = append(errs, fmt.Sprintf("fee_types: %q maps to both %q and %q", alias, prev, canonical))
				continue
			}
			s.aliases[key] = canonical
		}
	}

	for desc, canonical := range f.Descriptions {
		if key := normalize(desc); key != "" {
			s.descriptions[key] = strings.TrimSpace(canonical)
		}
	}

	for table, cols := range f.Columns {
		s.columns[table] = append([]string(nil), cols...)
	}

	for year, session := range f.BillYearSessions {
		s.billYears[strings.TrimSpace(year)] = strings.TrimSpace(session)
	}

	if s.consolidated == "" {
		errs = append(errs, "consolidated_fee_type is required")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w:\n  - %s", ErrInvalidMappings, strings.Join(errs, "\n  - "))
	}
	return s, nil
}

// normalize lowercases a label and collapses whitespace runs.
func normalize(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// FeeType resolves a legacy fee label to its canonical name. Placeholders
// resolve to ""; unknown labels are returned trimmed but otherwise unchanged.
func (s *Set) FeeType(label string) string {
	if clean.IsPlaceholder(label) {
		return ""
	}
	if canonical, ok := s.aliases[normalize(label)]; ok {
		return canonical
	}
	return strings.TrimSpace(label)
}

// Description resolves an admission-payment description. The description
// table is consulted first, then the fee-type aliases.
func (s *Set) Description(desc string) string {
	if clean.IsPlaceholder(desc) {
		return ""
	}
	if canonical, ok := s.descriptions[normalize(desc)]; ok {
		return canonical
	}
	return s.FeeType(desc)
}

// Columns returns the category columns configured for a legacy table.
func (s *Set) Columns(table string) []string {
	return append([]string(nil), s.columns[table]...)
}

// ConsolidatedFeeType is the fee type given to payments without a category
// breakdown.
func (s *Set) ConsolidatedFeeType() string {
	return s.consolidated
}

// SessionForYear maps a calendar year to the session used for bills that
// carry no session of their own.
func (s *Set) SessionForYear(year string) (string, bool) {
	session, ok := s.billYears[strings.TrimSpace(year)]
	return session, ok
}

// CanonicalFeeTypes returns the canonical fee-type vocabulary, sorted.
func (s *Set) CanonicalFeeTypes() []string {
	return append([]string(nil), s.canonical...)
}
