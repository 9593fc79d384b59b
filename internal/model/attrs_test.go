package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttrsFlatTextIsAlphabeticallyOrdered(t *testing.T) {
	a := Attrs{
		"zeta":  StringValue("z"),
		"alpha": IntValue(1),
		"mid":   BoolValue(true),
	}
	require.Equal(t, "alpha=1 mid=true zeta=z", a.FlatText())
}

func TestAttrsJSONIsKeySorted(t *testing.T) {
	a := Attrs{"b": StringValue("2"), "a": StringValue("1")}
	require.Equal(t, `{"a":"1","b":"2"}`, a.JSON())
}

func TestAttrsJSONEmpty(t *testing.T) {
	require.Equal(t, "{}", Attrs{}.JSON())
}

func TestValueTextVariants(t *testing.T) {
	require.Equal(t, "hi", StringValue("hi").Text())
	require.Equal(t, "true", BoolValue(true).Text())
	require.Equal(t, "42", IntValue(42).Text())
	require.Equal(t, "3.5", DoubleValue(3.5).Text())
	require.Equal(t, "[1,2]", ListValue([]Value{IntValue(1), IntValue(2)}).Text())
}

func TestAttrsMergeWithPrefix(t *testing.T) {
	dst := Attrs{"existing": StringValue("v")}
	other := Attrs{"k": StringValue("scoped")}
	dst.Merge(other, "scope.")
	require.Equal(t, StringValue("scoped"), dst["scope.k"])
	require.Equal(t, StringValue("v"), dst["existing"])
}
