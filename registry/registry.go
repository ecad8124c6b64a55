// Package registry is the default, in-process realization of the schema
// catalogue treated as an opaque external collaborator: a mapping
// from iotypes.MethodName to {props, state, returns} validators. A real
// deployment may swap in a catalogue generated from the coordinator's own
// schema definitions; Registry is the seam that allows it.
package registry

import (
	"fmt"

	playval "github.com/go-playground/validator/v10"

	"github.com/boxcast/actionhost/codec"
	"github.com/boxcast/actionhost/iotypes"
)

// Validator canonicalizes an inbound wire value, already decoded off the
// envelope by codec.Decode (so richer types like time.Time are already
// restored), into a typed Go value, or reports why it could not. Used for
// State and Returns, both of which arrive off the wire.
type Validator func(canon interface{}) (interface{}, error)

// PropsValidator canonicalizes an outbound, already-typed Go value supplied
// by the action at construction time. Props travel host -> wire only, so
// there is nothing to decode; there is only struct-tag validation to run.
type PropsValidator func(v interface{}) (interface{}, error)

// Schema is the {props, state, returns} validator triple for one method
// name. A nil validator accepts any value unchanged (used for components,
// like DISPLAY_OBJECT's props, whose value shape is caller-defined).
type Schema struct {
	Props   PropsValidator
	State   Validator
	Returns Validator
}

// Registry looks up the Schema for a method name. Implementations must be
// safe for concurrent use; the default Static registry is read-only after
// construction and needs no locking.
type Registry interface {
	Lookup(m iotypes.MethodName) (Schema, bool)
}

// Static is a fixed, build-time table of schemas.
type Static struct {
	schemas map[iotypes.MethodName]Schema
}

func (s *Static) Lookup(m iotypes.MethodName) (Schema, bool) {
	sc, ok := s.schemas[m]
	return sc, ok
}

var validate = playval.New()

// passthrough accepts any decodable value unchanged — used where the
// component's return/props shape is genuinely caller-defined (SEARCH
// results, DISPLAY_OBJECT payloads) rather than fixed by the catalogue.
func passthrough(canon interface{}) (interface{}, error) {
	return canon, nil
}

// typed builds a Validator that mapstructure-decodes into a fresh T and
// runs struct-tag validation over it before accepting the value.
func typed[T any]() Validator {
	return func(canon interface{}) (interface{}, error) {
		var dst T
		if err := codec.DecodeValue(canon, &dst); err != nil {
			return nil, fmt.Errorf("registry: decode: %w", err)
		}
		if err := validate.Struct(&dst); err != nil {
			if _, ok := err.(*playval.InvalidValidationError); !ok {
				return nil, fmt.Errorf("registry: validate: %w", err)
			}
		}
		return dst, nil
	}
}

// scalar builds a Validator for bare scalar returns (string, bool, float64)
// that mapstructure can decode without an intermediate struct wrapper.
func scalar[T any]() Validator {
	return func(canon interface{}) (interface{}, error) {
		var zero T
		if canon == nil {
			return zero, nil
		}
		if cast, ok := canon.(T); ok {
			return cast, nil
		}
		// mapstructure covers the coercions json.Unmarshal's float64/
		// string/bool defaults don't already satisfy.
		var dst T
		if err := codec.DecodeValue(canon, &dst); err != nil {
			return nil, fmt.Errorf("registry: scalar decode: %w", err)
		}
		return dst, nil
	}
}

// typedProps builds a PropsValidator that struct-tag-validates an
// already-typed T (or *T) supplied at component construction time.
func typedProps[T any]() PropsValidator {
	return func(v interface{}) (interface{}, error) {
		switch p := v.(type) {
		case T:
			if err := validate.Struct(&p); err != nil {
				if _, ok := err.(*playval.InvalidValidationError); !ok {
					return nil, fmt.Errorf("registry: validate props: %w", err)
				}
			}
			return p, nil
		case *T:
			if p == nil {
				var zero T
				return zero, nil
			}
			if err := validate.Struct(p); err != nil {
				if _, ok := err.(*playval.InvalidValidationError); !ok {
					return nil, fmt.Errorf("registry: validate props: %w", err)
				}
			}
			return *p, nil
		default:
			return nil, fmt.Errorf("registry: props must be %T, got %T", *new(T), v)
		}
	}
}

// TextProps mirrors the catalogue's INPUT_TEXT props.
type TextProps struct {
	Placeholder string `json:"placeholder,omitempty"`
	HelpText    string `json:"helpText,omitempty"`
	MultiLine   bool   `json:"multiline,omitempty"`
	MinLength   *int   `json:"minLength,omitempty" validate:"omitempty,min=0"`
	MaxLength   *int   `json:"maxLength,omitempty" validate:"omitempty,min=0"`
}

// NumberProps mirrors INPUT_NUMBER props.
type NumberProps struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Decimals *int     `json:"decimals,omitempty" validate:"omitempty,min=0"`
}

// ConfirmProps mirrors CONFIRM props.
type ConfirmProps struct {
	Message string `json:"message" validate:"required"`
}

// SearchProps mirrors SEARCH props.
type SearchProps struct {
	Placeholder string `json:"placeholder,omitempty"`
}

// SelectOption mirrors one option of a SELECT_* component.
type SelectOption struct {
	Label string      `json:"label" validate:"required"`
	Value interface{} `json:"value"`
}

// SelectProps mirrors SELECT_SINGLE / SELECT_MULTIPLE props.
type SelectProps struct {
	Options []SelectOption `json:"options" validate:"required,dive"`
}

// TableProps mirrors SELECT_TABLE / DISPLAY_TABLE props.
type TableProps struct {
	Data    []map[string]interface{} `json:"data"`
	Columns []string                 `json:"columns,omitempty"`
}

// HeadingProps mirrors DISPLAY_HEADING props.
type HeadingProps struct {
	Label string `json:"label" validate:"required"`
}

// MarkdownProps mirrors DISPLAY_MARKDOWN props.
type MarkdownProps struct {
	Content string `json:"content" validate:"required"`
}

// LinkProps mirrors DISPLAY_LINK props.
type LinkProps struct {
	URL string `json:"url" validate:"required,url"`
}

// SpreadsheetProps mirrors EXPERIMENTAL_SPREADSHEET props.
type SpreadsheetProps struct {
	Columns []string `json:"columns" validate:"required"`
}

// FileProps mirrors EXPERIMENTAL_INPUT_FILE props.
type FileProps struct {
	Extensions []string `json:"extensions,omitempty"`
}

// FileResult mirrors EXPERIMENTAL_INPUT_FILE's returns.
type FileResult struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
	Size int64  `json:"size"`
}

// Default builds the Static registry used when a Host is not given a
// custom Registry: a reasonable, fully-typed catalogue for every
// iotypes.MethodName, enough to drive the render loop end to end without
// a coordinator-supplied schema service.
func Default() *Static {
	return &Static{schemas: map[iotypes.MethodName]Schema{
		iotypes.InputText: {
			Props:   typedProps[TextProps](),
			Returns: scalar[string](),
		},
		iotypes.InputBoolean: {
			Returns: scalar[bool](),
		},
		iotypes.InputNumber: {
			Props:   typedProps[NumberProps](),
			Returns: scalar[float64](),
		},
		iotypes.InputEmail: {
			Returns: scalar[string](),
		},
		iotypes.InputRichText: {
			Props:   typedProps[TextProps](),
			Returns: scalar[string](),
		},
		iotypes.Confirm: {
			Props:   typedProps[ConfirmProps](),
			Returns: scalar[bool](),
		},
		iotypes.Search: {
			Props:   typedProps[SearchProps](),
			State:   scalar[string](),
			Returns: passthrough,
		},
		iotypes.SelectSingle: {
			Props:   typedProps[SelectProps](),
			Returns: passthrough,
		},
		iotypes.SelectMultiple: {
			Props:   typedProps[SelectProps](),
			Returns: passthrough,
		},
		iotypes.SelectTable: {
			Props:   typedProps[TableProps](),
			Returns: passthrough,
		},
		iotypes.DisplayHeading: {
			Props:   typedProps[HeadingProps](),
			Returns: passthrough,
		},
		iotypes.DisplayMarkdown: {
			Props:   typedProps[MarkdownProps](),
			Returns: passthrough,
		},
		iotypes.DisplayLink: {
			Props:   typedProps[LinkProps](),
			Returns: passthrough,
		},
		iotypes.DisplayObject: {
			Returns: passthrough,
		},
		iotypes.DisplayTable: {
			Props:   typedProps[TableProps](),
			Returns: passthrough,
		},
		iotypes.ExperimentalSpreadsheet: {
			Props:   typedProps[SpreadsheetProps](),
			Returns: passthrough,
		},
		iotypes.ExperimentalDate: {
			Returns: scalar[string](),
		},
		iotypes.ExperimentalTime: {
			Returns: scalar[string](),
		},
		iotypes.ExperimentalDateTime: {
			Returns: scalar[string](),
		},
		iotypes.ExperimentalInputFile: {
			Props:   typedProps[FileProps](),
			Returns: typed[FileResult](),
		},
	}}
}
