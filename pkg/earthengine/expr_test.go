package earthengine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeValue(t *testing.T, expr *Expression, id string) map[string]any {
	t.Helper()
	raw, ok := expr.Values[id]
	require.True(t, ok, "missing value %s", id)
	var v map[string]any
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func invocation(t *testing.T, v map[string]any) (string, map[string]any) {
	t.Helper()
	fn, ok := v["functionInvocationValue"].(map[string]any)
	require.True(t, ok, "not an invocation: %v", v)
	args, _ := fn["arguments"].(map[string]any)
	return fn["functionName"].(string), args
}

func TestSerialize_ConstantRoot(t *testing.T) {
	t.Parallel()

	expr, err := Serialize(Const(5))
	require.NoError(t, err)
	assert.Equal(t, "0", expr.Result)
	assert.Equal(t, map[string]any{"constantValue": float64(5)}, decodeValue(t, expr, "0"))
}

func TestSerialize_SharedSubexpression(t *testing.T) {
	t.Parallel()

	// EmptyImage uses the same constant image for image and mask.
	expr, err := Serialize(EmptyImage().Node())
	require.NoError(t, err)
	assert.Len(t, expr.Values, 2)

	name, args := invocation(t, decodeValue(t, expr, expr.Result))
	assert.Equal(t, "Image.mask", name)
	assert.Equal(t, args["image"], args["mask"])

	ref := args["image"].(map[string]any)["valueReference"].(string)
	inner, _ := invocation(t, decodeValue(t, expr, ref))
	assert.Equal(t, "Image.constant", inner)
}

func TestSerialize_ConstantArrayCollapses(t *testing.T) {
	t.Parallel()

	expr, err := Serialize(LoadCollection("COPERNICUS/S2").First().Select("B4", "B3").Node())
	require.NoError(t, err)

	name, args := invocation(t, decodeValue(t, expr, expr.Result))
	assert.Equal(t, "Image.select", name)
	assert.Equal(t, map[string]any{"constantValue": []any{"B4", "B3"}}, args["bandSelectors"])
}

func TestSerialize_DictionaryOfInvocations(t *testing.T) {
	t.Parallel()

	col := LoadCollection("COPERNICUS/S2")
	d := NewDictionary(map[string]Node{
		"count": col.Size(),
		"label": Const("scene"),
	})
	expr, err := Serialize(d.Node())
	require.NoError(t, err)

	root := decodeValue(t, expr, expr.Result)
	dv, ok := root["dictionaryValue"].(map[string]any)
	require.True(t, ok)
	values := dv["values"].(map[string]any)
	assert.Contains(t, values["count"], "valueReference")
	assert.Equal(t, map[string]any{"constantValue": "scene"}, values["label"])
	assert.ElementsMatch(t, []string{"count", "label"}, d.Keys())
}

func TestSerialize_Deterministic(t *testing.T) {
	t.Parallel()

	build := func() Node {
		img := LoadCollection("COPERNICUS/S2").FilterBounds(Point(35.3, 1.84).Buffer(2000).Bounds()).First()
		return img.NormalizedDifference("B3", "B8").Gt(0).SelfMask().Node()
	}
	a, err := Serialize(build())
	require.NoError(t, err)
	b, err := Serialize(build())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSerialize_Errors(t *testing.T) {
	t.Parallel()

	_, err := Serialize(nil)
	assert.Error(t, err)

	_, err = Serialize(Invoke("", nil))
	assert.Error(t, err)

	_, err = Serialize(Array{Items: []Node{nil}})
	assert.Error(t, err)
}

func TestInvoke_DropsNilArgs(t *testing.T) {
	t.Parallel()

	inv := Invoke("Image.reduceRegion", map[string]Node{"image": Const(1), "crs": nil})
	assert.Len(t, inv.Args, 1)
	assert.Equal(t, "Image.reduceRegion", FunctionName(inv))
	assert.Equal(t, "", FunctionName(Const(1)))
}
