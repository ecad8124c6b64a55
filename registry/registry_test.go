package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxcast/actionhost/iotypes"
)

func TestDefaultCoversEveryMethodName(t *testing.T) {
	reg := Default()
	names := []iotypes.MethodName{
		iotypes.Confirm, iotypes.Search,
		iotypes.InputText, iotypes.InputBoolean, iotypes.InputNumber, iotypes.InputEmail, iotypes.InputRichText,
		iotypes.SelectSingle, iotypes.SelectMultiple, iotypes.SelectTable,
		iotypes.DisplayHeading, iotypes.DisplayMarkdown, iotypes.DisplayLink, iotypes.DisplayObject, iotypes.DisplayTable,
		iotypes.ExperimentalSpreadsheet, iotypes.ExperimentalDate, iotypes.ExperimentalTime,
		iotypes.ExperimentalDateTime, iotypes.ExperimentalInputFile,
	}
	for _, n := range names {
		_, ok := reg.Lookup(n)
		assert.True(t, ok, "expected a schema for %s", n)
	}
}

func TestLookupUnknownMethodReturnsFalse(t *testing.T) {
	reg := Default()
	_, ok := reg.Lookup(iotypes.MethodName("NOT_A_METHOD"))
	assert.False(t, ok)
}

func TestConfirmPropsRequiresMessage(t *testing.T) {
	reg := Default()
	sc, ok := reg.Lookup(iotypes.Confirm)
	require.True(t, ok)

	_, err := sc.Props(ConfirmProps{})
	assert.Error(t, err)

	v, err := sc.Props(ConfirmProps{Message: "Proceed?"})
	require.NoError(t, err)
	assert.Equal(t, ConfirmProps{Message: "Proceed?"}, v)
}

func TestConfirmPropsAcceptsPointer(t *testing.T) {
	reg := Default()
	sc, _ := reg.Lookup(iotypes.Confirm)

	v, err := sc.Props(&ConfirmProps{Message: "Proceed?"})
	require.NoError(t, err)
	assert.Equal(t, ConfirmProps{Message: "Proceed?"}, v)
}

func TestTextPropsRejectsWrongType(t *testing.T) {
	reg := Default()
	sc, _ := reg.Lookup(iotypes.InputText)

	_, err := sc.Props("not text props")
	assert.Error(t, err)
}

func TestScalarReturnsCoerceWireValues(t *testing.T) {
	reg := Default()
	sc, _ := reg.Lookup(iotypes.InputNumber)

	v, err := sc.Returns(float64(42))
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)
}

func TestScalarReturnsNilBecomesZeroValue(t *testing.T) {
	reg := Default()
	sc, _ := reg.Lookup(iotypes.InputBoolean)

	v, err := sc.Returns(nil)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestSearchStateDecodesQueryString(t *testing.T) {
	reg := Default()
	sc, _ := reg.Lookup(iotypes.Search)

	v, err := sc.State("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestPassthroughReturnsAcceptAnything(t *testing.T) {
	reg := Default()
	sc, _ := reg.Lookup(iotypes.DisplayObject)

	in := map[string]interface{}{"anything": []interface{}{1, 2, 3}}
	v, err := sc.Returns(in)
	require.NoError(t, err)
	assert.Equal(t, in, v)
}

func TestTypedReturnsValidatesFileResult(t *testing.T) {
	reg := Default()
	sc, _ := reg.Lookup(iotypes.ExperimentalInputFile)

	_, err := sc.Returns(map[string]interface{}{"name": "photo.png"})
	assert.Error(t, err, "missing required url should fail validation")

	v, err := sc.Returns(map[string]interface{}{
		"name": "photo.png",
		"url":  "https://example.com/photo.png",
		"size": 1024,
	})
	require.NoError(t, err)
	fr, ok := v.(FileResult)
	require.True(t, ok)
	assert.Equal(t, "photo.png", fr.Name)
	assert.Equal(t, int64(1024), fr.Size)
}
