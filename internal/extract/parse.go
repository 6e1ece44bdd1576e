package extract

import (
	"log/slog"

	"github.com/dgallion1/resumex/internal/doctree"
	"github.com/dgallion1/resumex/internal/schema"
)

// Result is the outcome of Parse.
type Result struct {
	Record   Record
	Found    []string // section titles located in the document
	Missing  []string // section titles left at their template defaults
	Warnings []error  // *FieldFormatError values, in document order
}

type options struct {
	log *slog.Logger
}

// Option configures Parse.
type Option func(*options)

// WithLogger sets the logger used for debug and warning output. Parse is
// silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// parseContext is what one section extractor may touch.
type parseContext struct {
	sep     string
	spec    *schema.Section
	section *Section
	merger  *Merger
	log     *slog.Logger
	res     *Result
}

func (pc *parseContext) warn(line, reason string) {
	err := &FieldFormatError{Section: pc.spec.Title, Line: line, Reason: reason}
	pc.log.Warn("malformed line", "line", line, "reason", reason)
	pc.res.Warnings = append(pc.res.Warnings, err)
}

// Parse extracts a record from doc following cfg. Sections are processed in
// the order cfg declares them. Document content never makes Parse fail:
// absent sections keep their defaults and malformed lines become warnings.
func Parse(doc *doctree.Document, cfg *schema.Config, opts ...Option) *Result {
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	m := NewMerger(cfg.Template, o.log)
	res := &Result{}
	for i := range cfg.Sections {
		spec := &cfg.Sections[i]
		sec, ok := Locate(doc, spec.Title, cfg.SectionLevel)
		if !ok {
			o.log.Debug("section not found", "section", spec.Title, "error", ErrSectionAbsent)
			res.Missing = append(res.Missing, spec.Title)
			continue
		}
		res.Found = append(res.Found, spec.Title)

		pc := &parseContext{
			sep:     cfg.Separator,
			spec:    spec,
			section: sec,
			merger:  m,
			log:     o.log.With("section", spec.Title),
			res:     res,
		}
		switch spec.Kind {
		case schema.KindParagraph:
			extractParagraph(pc)
		case schema.KindFields:
			extractFields(pc)
		case schema.KindRepeating:
			m.Clear(spec.Key)
			extractRepeating(pc)
		case schema.KindGrouped:
			m.Clear(spec.Key)
			extractGrouped(pc)
		}
	}
	res.Record = m.Record()
	return res
}
