package handle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Pattern string `json:"pattern"`
	Limit   int    `json:"limit"`
	Service string `json:"service,omitempty"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	req := sampleRequest{Pattern: "deadline", Limit: 50, Service: "api"}

	h, err := Encode(req)
	require.NoError(t, err)
	require.NotEmpty(t, h)

	var got sampleRequest
	require.NoError(t, Decode(h, &got))
	require.Equal(t, req, got)
}

func TestEncodeIsOrderIndependent(t *testing.T) {
	type a struct {
		B int `json:"b"`
		A int `json:"a"`
	}
	type b struct {
		A int `json:"a"`
		B int `json:"b"`
	}

	ha, err := Encode(a{B: 2, A: 1})
	require.NoError(t, err)
	hb, err := Encode(b{A: 1, B: 2})
	require.NoError(t, err)

	require.Equal(t, ha, hb)
}

func TestCanonicalJSONIsIdempotent(t *testing.T) {
	req := sampleRequest{Pattern: "x", Limit: 1}
	h, err := Encode(req)
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, Decode(h, &generic))

	reEncoded, err := Encode(generic)
	require.NoError(t, err)
	require.Equal(t, h, reEncoded)
}
