package layout

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"barsheet/binding"
	"barsheet/dsl"
)

// Defaults applied to newly created groups, both from sheet files and from
// interactive edits. The first group sits flush against the page top;
// subsequent groups get a small gap.
const (
	DefaultRepeatX          = 5
	DefaultRepeatY          = 10
	DefaultMarginTopIn      = 0.2
	DefaultFirstMarginTopIn = 0.0
)

// FromSheet converts a parsed sheet definition into the ordered group
// sequence. String values (image reference and title) may contain ${path}
// placeholders interpolated from data. Groups start unvalidated; resolution
// happens separately.
func FromSheet(doc *dsl.Sheet, data any) ([]Group, error) {
	if doc == nil {
		return nil, fmt.Errorf("layout: nil sheet document")
	}

	groups := make([]Group, 0, len(doc.Groups))
	for i, decl := range doc.Groups {
		g := Group{
			ID:          uuid.NewString(),
			Validation:  ValidationUnvalidated,
			RepeatX:     DefaultRepeatX,
			RepeatY:     DefaultRepeatY,
			MarginTopIn: DefaultMarginTopIn,
		}
		if i == 0 {
			g.MarginTopIn = DefaultFirstMarginTopIn
		}

		for _, e := range decl.Entries {
			switch e.Key {
			case "image":
				s, err := e.StringValue()
				if err != nil {
					return nil, fmt.Errorf("group %d: image: %w", i+1, err)
				}
				g.ImageRef = binding.Interpolate(s, data)
			case "title":
				s, err := e.StringValue()
				if err != nil {
					return nil, fmt.Errorf("group %d: title: %w", i+1, err)
				}
				g.Title = binding.Interpolate(s, data)
			case "repeat-x":
				n, err := intValue(e)
				if err != nil {
					return nil, fmt.Errorf("group %d: repeat-x: %w", i+1, err)
				}
				g.RepeatX = n
			case "repeat-y":
				n, err := intValue(e)
				if err != nil {
					return nil, fmt.Errorf("group %d: repeat-y: %w", i+1, err)
				}
				g.RepeatY = n
			case "margin-top":
				raw, err := e.RawValue()
				if err != nil {
					return nil, fmt.Errorf("group %d: margin-top: %w", i+1, err)
				}
				l, err := ParseLength(raw)
				if err != nil {
					return nil, fmt.Errorf("group %d: margin-top: %w", i+1, err)
				}
				in := l.ToInches()
				if in < 0 {
					in = 0
				}
				g.MarginTopIn = in
			default:
				return nil, fmt.Errorf("group %d: unknown key %q", i+1, e.Key)
			}
		}

		if g.ImageRef == "" {
			return nil, fmt.Errorf("group %d: missing image reference", i+1)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func intValue(e *dsl.Entry) (int, error) {
	raw, err := e.RawValue()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %q", raw)
	}
	return n, nil
}
