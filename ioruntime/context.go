package ioruntime

import (
	"log"

	"github.com/boxcast/actionhost/iotypes"
	"github.com/boxcast/actionhost/registry"
)

// Context is the io namespace an action receives: every method builds a
// Component against the transaction's Client and wraps it in a Promise, so
// an action's code reads as a sequence of awaits (await io.Input.Text(...))
// the same way a sequence of genericRPC calls would read as a sequence of
// blocking RPCs. Construct one per transaction with NewContext.
type Context struct {
	client   *Client
	registry registry.Registry
	logger   *log.Logger

	Input        InputNamespace
	Select       SelectNamespace
	Display      DisplayNamespace
	Experimental ExperimentalNamespace
}

// NewContext builds the io namespace bound to one transaction's Client.
func NewContext(client *Client, reg registry.Registry, logger *log.Logger) *Context {
	c := &Context{client: client, registry: reg, logger: logger}
	c.Input = InputNamespace{c}
	c.Select = SelectNamespace{c}
	c.Display = DisplayNamespace{c}
	c.Experimental = ExperimentalNamespace{c}
	return c
}

func (c *Context) schema(m iotypes.MethodName) registry.Schema {
	if c.registry == nil {
		return registry.Schema{}
	}
	sc, _ := c.registry.Lookup(m)
	return sc
}

func (c *Context) newPromise(m iotypes.MethodName, label string, props interface{}, getValue GetValue) (*Promise, error) {
	comp, err := New(m, label, c.schema(m), props, nil, c.logger)
	if err != nil {
		return nil, err
	}
	return newPromise(c.client, comp, getValue, iotypes.Exclusive(m)), nil
}

// newStatefulPromise is for components (SEARCH) that react to inbound
// SET_STATE via onIncomingState, recomputing props from the operator's
// in-progress input.
func (c *Context) newStatefulPromise(m iotypes.MethodName, label string, props interface{}, onState StateHandler, getValue GetValue) (*Promise, error) {
	comp, err := New(m, label, c.schema(m), props, onState, c.logger)
	if err != nil {
		return nil, err
	}
	return newPromise(c.client, comp, getValue, iotypes.Exclusive(m)), nil
}

// Group batches sibling Promises into one render. It is a
// thin re-export of the package-level Group so actions write io.Group(...).
func (c *Context) Group(promises ...*Promise) (*GroupPromise, error) {
	return Group(promises...)
}

// Confirm renders a full-screen-style CONFIRM component. Exclusive: it can
// never appear inside a Group.
func (c *Context) Confirm(message string) (*Promise, error) {
	return c.newPromise(iotypes.Confirm, message, registry.ConfirmProps{Message: message}, nil)
}

// Search renders a SEARCH component whose results are recomputed from the
// operator's in-progress query via onQueryChange, delivered through
// SET_STATE the same way onIncomingState works for any stateful component.
func (c *Context) Search(label string, onQueryChange func(query string) (interface{}, error)) (*Promise, error) {
	handler := func(newState interface{}) (interface{}, error) {
		query, _ := newState.(string)
		return onQueryChange(query)
	}
	return c.newStatefulPromise(iotypes.Search, label, registry.SearchProps{}, handler, nil)
}

// InputNamespace groups the INPUT_* component constructors.
type InputNamespace struct{ c *Context }

// Text renders INPUT_TEXT.
func (n InputNamespace) Text(label string, props registry.TextProps) (*Promise, error) {
	return n.c.newPromise(iotypes.InputText, label, props, nil)
}

// Boolean renders INPUT_BOOLEAN.
func (n InputNamespace) Boolean(label string) (*Promise, error) {
	return n.c.newPromise(iotypes.InputBoolean, label, nil, nil)
}

// Number renders INPUT_NUMBER.
func (n InputNamespace) Number(label string, props registry.NumberProps) (*Promise, error) {
	return n.c.newPromise(iotypes.InputNumber, label, props, nil)
}

// Email renders INPUT_EMAIL.
func (n InputNamespace) Email(label string) (*Promise, error) {
	return n.c.newPromise(iotypes.InputEmail, label, nil, nil)
}

// RichText renders INPUT_RICH_TEXT.
func (n InputNamespace) RichText(label string, props registry.TextProps) (*Promise, error) {
	return n.c.newPromise(iotypes.InputRichText, label, props, nil)
}

// SelectNamespace groups the SELECT_* component constructors.
type SelectNamespace struct{ c *Context }

// Single renders SELECT_SINGLE, unwrapping the chosen registry.SelectOption
// to its .Value for the caller.
func (n SelectNamespace) Single(label string, props registry.SelectProps) (*Promise, error) {
	return n.c.newPromise(iotypes.SelectSingle, label, props, selectOptionValue)
}

// Multiple renders SELECT_MULTIPLE, unwrapping each chosen option to its
// .Value.
func (n SelectNamespace) Multiple(label string, props registry.SelectProps) (*Promise, error) {
	return n.c.newPromise(iotypes.SelectMultiple, label, props, selectOptionValues)
}

// Table renders SELECT_TABLE, returning the operator's selected rows
// unmodified (caller-defined shape).
func (n SelectNamespace) Table(label string, props registry.TableProps) (*Promise, error) {
	return n.c.newPromise(iotypes.SelectTable, label, props, nil)
}

// DisplayNamespace groups the DISPLAY_* component constructors. Display
// components render but do not block on a meaningful return value; Await
// still resolves (after the surrounding batch returns) so these compose
// inside a Group with input components.
type DisplayNamespace struct{ c *Context }

// Heading renders DISPLAY_HEADING.
func (n DisplayNamespace) Heading(label string) (*Promise, error) {
	return n.c.newPromise(iotypes.DisplayHeading, label, registry.HeadingProps{Label: label}, nil)
}

// Markdown renders DISPLAY_MARKDOWN.
func (n DisplayNamespace) Markdown(label, content string) (*Promise, error) {
	return n.c.newPromise(iotypes.DisplayMarkdown, label, registry.MarkdownProps{Content: content}, nil)
}

// Link renders DISPLAY_LINK.
func (n DisplayNamespace) Link(label, url string) (*Promise, error) {
	return n.c.newPromise(iotypes.DisplayLink, label, registry.LinkProps{URL: url}, nil)
}

// Object renders DISPLAY_OBJECT with a caller-defined payload.
func (n DisplayNamespace) Object(label string, value interface{}) (*Promise, error) {
	return n.c.newPromise(iotypes.DisplayObject, label, value, nil)
}

// Table renders DISPLAY_TABLE.
func (n DisplayNamespace) Table(label string, props registry.TableProps) (*Promise, error) {
	return n.c.newPromise(iotypes.DisplayTable, label, props, nil)
}

// ExperimentalNamespace groups the EXPERIMENTAL_* component constructors,
// mirroring the catalogue's own "experimental" grouping (subject to change
// without the stability the other namespaces carry).
type ExperimentalNamespace struct{ c *Context }

// Spreadsheet renders EXPERIMENTAL_SPREADSHEET.
func (n ExperimentalNamespace) Spreadsheet(label string, props registry.SpreadsheetProps) (*Promise, error) {
	return n.c.newPromise(iotypes.ExperimentalSpreadsheet, label, props, nil)
}

// Date renders EXPERIMENTAL_DATE.
func (n ExperimentalNamespace) Date(label string) (*Promise, error) {
	return n.c.newPromise(iotypes.ExperimentalDate, label, nil, nil)
}

// Time renders EXPERIMENTAL_TIME.
func (n ExperimentalNamespace) Time(label string) (*Promise, error) {
	return n.c.newPromise(iotypes.ExperimentalTime, label, nil, nil)
}

// DateTime renders EXPERIMENTAL_DATETIME.
func (n ExperimentalNamespace) DateTime(label string) (*Promise, error) {
	return n.c.newPromise(iotypes.ExperimentalDateTime, label, nil, nil)
}

// InputFile renders EXPERIMENTAL_INPUT_FILE.
func (n ExperimentalNamespace) InputFile(label string, props registry.FileProps) (*Promise, error) {
	return n.c.newPromise(iotypes.ExperimentalInputFile, label, props, nil)
}

func selectOptionValue(raw interface{}) (interface{}, error) {
	opt, ok := raw.(registry.SelectOption)
	if !ok {
		m, ok := raw.(map[string]interface{})
		if ok {
			return m["value"], nil
		}
		return raw, nil
	}
	return opt.Value, nil
}

func selectOptionValues(raw interface{}) (interface{}, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return raw, nil
	}
	out := make([]interface{}, len(items))
	for i, item := range items {
		v, err := selectOptionValue(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
