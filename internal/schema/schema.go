package schema

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/unicode/norm"
)

// Kind selects the extractor used for a section.
type Kind string

const (
	// KindParagraph writes the section's first paragraph to a top-level key.
	KindParagraph Kind = "paragraph"
	// KindFields writes label:value lines of one list into a nested mapping.
	KindFields Kind = "fields"
	// KindRepeating builds one record per sub-heading block.
	KindRepeating Kind = "repeating"
	// KindGrouped builds records from a flat list, starting a new record
	// whenever the boundary field repeats.
	KindGrouped Kind = "grouped"
)

// LabelMap translates a document label into a canonical field name.
type LabelMap map[string]string

// Resolve returns the field for label. Unknown labels report false.
func (m LabelMap) Resolve(label string) (string, bool) {
	f, ok := m[NormalizeLabel(label)]
	return f, ok
}

// NormalizeLabel trims a label and puts it in Unicode NFC form so that
// composed and decomposed spellings resolve alike.
func NormalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}

// Section describes where one part of the record comes from.
type Section struct {
	Title  string   `json:"title" yaml:"title" toml:"title"`
	Key    string   `json:"key" yaml:"key" toml:"key"`
	Kind   Kind     `json:"kind" yaml:"kind" toml:"kind"`
	Labels LabelMap `json:"labels,omitempty" yaml:"labels,omitempty" toml:"labels,omitempty"`

	// ListFields (fields kind) collect values as sequences, one entry per line.
	ListFields []string `json:"list_fields,omitempty" yaml:"list_fields,omitempty" toml:"list_fields,omitempty"`

	// FreeText (repeating kind) fields are sequences opened by their label;
	// following unlabelled lines are appended until another label is seen.
	FreeText []string `json:"free_text,omitempty" yaml:"free_text,omitempty" toml:"free_text,omitempty"`
	// Overflow (repeating kind) is the free-text field that receives
	// unlabelled lines when no free-text field is open.
	Overflow string `json:"overflow,omitempty" yaml:"overflow,omitempty" toml:"overflow,omitempty"`

	// Boundary (grouped kind) is the field whose label starts a new record.
	Boundary string `json:"boundary,omitempty" yaml:"boundary,omitempty" toml:"boundary,omitempty"`

	// HeadingPattern (repeating kind) is a regexp whose named groups are
	// written as fields of the sub-block's record.
	HeadingPattern string `json:"heading_pattern,omitempty" yaml:"heading_pattern,omitempty" toml:"heading_pattern,omitempty"`
	// HeadingField (repeating kind) stores the raw sub-heading text.
	HeadingField string `json:"heading_field,omitempty" yaml:"heading_field,omitempty" toml:"heading_field,omitempty"`

	headingRe *regexp.Regexp
}

// HeadingRegexp returns the compiled heading pattern, or nil.
func (s *Section) HeadingRegexp() *regexp.Regexp { return s.headingRe }

// IsListField reports whether field collects a sequence in a fields section.
func (s *Section) IsListField(field string) bool { return slices.Contains(s.ListFields, field) }

// IsFreeText reports whether field is a free-text sequence, including the overflow field.
func (s *Section) IsFreeText(field string) bool {
	return field != "" && (field == s.Overflow || slices.Contains(s.FreeText, field))
}

// Config is a complete schema configuration. After Validate succeeds it must
// be treated as read-only; it is shared by concurrent parses.
type Config struct {
	// Separator splits "label<SEP>value" lines. Exactly one per deployment.
	Separator string `json:"separator" yaml:"separator" toml:"separator"`
	// SectionLevel is the heading level that anchors sections. Defaults to 1.
	SectionLevel int `json:"section_level" yaml:"section_level" toml:"section_level"`

	Template map[string]any `json:"template" yaml:"template" toml:"template"`
	Sections []Section      `json:"sections" yaml:"sections" toml:"sections"`

	// Required lists template keys the caller expects to be filled.
	Required []string `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
	// ValidationSchema is an optional JSON Schema applied to finished records.
	ValidationSchema map[string]any `json:"validation_schema,omitempty" yaml:"validation_schema,omitempty" toml:"validation_schema,omitempty"`

	validator *jsonschema.Schema
}

// Validator returns the compiled validation schema, or nil.
func (c *Config) Validator() *jsonschema.Schema { return c.validator }

// SectionByTitle returns the section configured for title.
func (c *Config) SectionByTitle(title string) (*Section, bool) {
	for i := range c.Sections {
		if c.Sections[i].Title == title {
			return &c.Sections[i], true
		}
	}
	return nil, false
}

// Validate checks the configuration, normalises label maps and compiles
// patterns. Every failure is a *ConfigLoadError.
func (c *Config) Validate() error {
	if c.Separator == "" {
		return loadError("", "separator is required")
	}
	if c.SectionLevel == 0 {
		c.SectionLevel = 1
	}
	if c.SectionLevel < 1 || c.SectionLevel > 5 {
		return loadError("", "section_level must be between 1 and 5, got %d", c.SectionLevel)
	}
	if c.Template == nil {
		return loadError("", "template is required")
	}
	if len(c.Sections) == 0 {
		return loadError("", "at least one section is required")
	}

	titles := make(map[string]bool, len(c.Sections))
	for i := range c.Sections {
		s := &c.Sections[i]
		if err := c.validateSection(s); err != nil {
			return loadError("", "section %d (%q): %w", i, s.Title, err)
		}
		if titles[s.Title] {
			return loadError("", "duplicate section title %q", s.Title)
		}
		titles[s.Title] = true
	}

	for _, key := range c.Required {
		if _, ok := c.Template[key]; !ok {
			return loadError("", "required key %q is not in the template", key)
		}
	}

	if c.ValidationSchema != nil {
		v, err := compileJSONSchema(c.ValidationSchema)
		if err != nil {
			return loadError("", "validation_schema: %w", err)
		}
		c.validator = v
	}
	return nil
}

func (c *Config) validateSection(s *Section) error {
	if s.Title == "" {
		return fmt.Errorf("title is required")
	}
	def, ok := c.Template[s.Key]
	if !ok {
		return fmt.Errorf("key %q is not in the template", s.Key)
	}

	normalized := make(LabelMap, len(s.Labels))
	for label, field := range s.Labels {
		if field == "" {
			return fmt.Errorf("label %q maps to an empty field", label)
		}
		normalized[NormalizeLabel(label)] = field
	}
	s.Labels = normalized

	switch s.Kind {
	case KindParagraph:
	case KindFields:
		if !isMapping(def) {
			return fmt.Errorf("fields section needs a mapping (or null) at %q", s.Key)
		}
	case KindRepeating, KindGrouped:
		if !isSequence(def) {
			return fmt.Errorf("%s section needs a sequence (or null) at %q", s.Kind, s.Key)
		}
		if s.Kind == KindGrouped && !s.mapsTo(s.Boundary) {
			return fmt.Errorf("boundary field %q has no label", s.Boundary)
		}
		if s.HeadingPattern != "" {
			re, err := regexp.Compile(s.HeadingPattern)
			if err != nil {
				return fmt.Errorf("heading_pattern: %w", err)
			}
			s.headingRe = re
		}
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	return nil
}

func (s *Section) mapsTo(field string) bool {
	if field == "" {
		return false
	}
	for _, f := range s.Labels {
		if f == field {
			return true
		}
	}
	return false
}

func isMapping(v any) bool {
	switch v.(type) {
	case nil, map[string]any:
		return true
	}
	return false
}

func isSequence(v any) bool {
	switch v.(type) {
	case nil, []any, []map[string]any:
		return true
	}
	return false
}

func compileJSONSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := sonic.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("record.json")
}
