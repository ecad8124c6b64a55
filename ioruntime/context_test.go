package ioruntime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxcast/actionhost/registry"
)

func newTestContext(send SendFunc) *Context {
	client := New(send, nil)
	return NewContext(client, registry.Default(), nil)
}

func awaitOn(t *testing.T, ch chan RenderPacket, client *Client, responseValues string) {
	t.Helper()
	var pkt RenderPacket
	select {
	case pkt = <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a render packet")
	}
	client.HandleResponse(ResponsePacket{
		InputGroupKey: pkt.InputGroupKey,
		Kind:          KindReturn,
		Values:        json.RawMessage(responseValues),
	})
}

func TestContextInputTextRoundTrip(t *testing.T) {
	ch := make(chan RenderPacket, 8)
	ctx := newTestContext(func(pkt RenderPacket) error { ch <- pkt; return nil })

	done := make(chan struct{})
	var value interface{}
	var err error
	go func() {
		p, perr := ctx.Input.Text("Name", registry.TextProps{})
		require.NoError(t, perr)
		value, err = p.Await()
		close(done)
	}()

	awaitOn(t, ch, ctx.client, `["Ada"]`)
	<-done
	require.NoError(t, err)
	assert.Equal(t, "Ada", value)
}

func TestContextSelectSingleUnwrapsOptionValue(t *testing.T) {
	ch := make(chan RenderPacket, 8)
	ctx := newTestContext(func(pkt RenderPacket) error { ch <- pkt; return nil })

	done := make(chan struct{})
	var value interface{}
	go func() {
		p, err := ctx.Select.Single("Pick one", registry.SelectProps{
			Options: []registry.SelectOption{{Label: "A", Value: "a"}},
		})
		require.NoError(t, err)
		value, _ = p.Await()
		close(done)
	}()

	awaitOn(t, ch, ctx.client, `[{"label":"A","value":"a"}]`)
	<-done
	assert.Equal(t, "a", value)
}

func TestContextConfirmIsExclusive(t *testing.T) {
	ctx := newTestContext(func(RenderPacket) error { return nil })
	p, err := ctx.Confirm("Are you sure?")
	require.NoError(t, err)
	assert.True(t, p.IsExclusive())
}

func TestContextGroupRejectsConfirmAlongsideInput(t *testing.T) {
	ctx := newTestContext(func(RenderPacket) error { return nil })
	confirm, err := ctx.Confirm("Sure?")
	require.NoError(t, err)
	text, err := ctx.Input.Email("Email")
	require.NoError(t, err)

	_, err = ctx.Group(confirm, text)
	assert.Error(t, err)
}

func TestContextSearchRecomputesPropsFromQuery(t *testing.T) {
	ctx := newTestContext(func(RenderPacket) error { return nil })

	var lastQuery string
	p, err := ctx.Search("Find user", func(query string) (interface{}, error) {
		lastQuery = query
		return []string{"result-for-" + query}, nil
	})
	require.NoError(t, err)

	require.NoError(t, p.component.SetState("ada"))
	assert.Equal(t, "ada", lastQuery)
	assert.Equal(t, []string{"result-for-ada"}, p.component.GetRenderInfo().Props)
}

func TestSelectOptionValuesUnwrapsEachElement(t *testing.T) {
	raw := []interface{}{
		registry.SelectOption{Label: "A", Value: "a"},
		map[string]interface{}{"label": "B", "value": "b"},
	}
	v, err := selectOptionValues(raw)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, v)
}
