package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func collect(raw string) []Payload {
	return collectBodies(gjson.Parse(raw))
}

func kinds(bodies []Payload) []string {
	out := []string{}
	for _, b := range bodies {
		out = append(out, b.Kind)
	}
	return out
}

func TestExplicitPayloadFields(t *testing.T) {
	bodies := collect(`{"message":"done","http_request":{"method":"GET"},"http_response":{"status":200}}`)
	require.Len(t, bodies, 2)
	assert.Equal(t, []string{"request", "response"}, kinds(bodies))
	assert.Equal(t, `{"method":"GET"}`, bodies[0].JSON)
}

func TestSweepDoesNotDuplicateExplicitCaptures(t *testing.T) {
	bodies := collect(`{"http_request":{"a":1}}`)
	require.Len(t, bodies, 1)
	assert.Equal(t, "request", bodies[0].Kind)
}

func TestNestedPayloadKinds(t *testing.T) {
	bodies := collect(`{"details":{"inner":{"rpc_request":{"a":1},"rpc_response":{"b":2},"error_body":{"c":3}}}}`)
	require.Len(t, bodies, 3)
	assert.ElementsMatch(t, []string{"request", "response", "error"}, kinds(bodies))
}

func TestPayloadFieldNameYieldsPayloadKind(t *testing.T) {
	bodies := collect(`{"details":{"grpc_payload":{"x":1}}}`)
	require.Len(t, bodies, 1)
	assert.Equal(t, "payload", bodies[0].Kind)
}

func TestIdentifierFieldsNeverBecomePayloads(t *testing.T) {
	bodies := collect(`{"tf_req_id":"abc-123","response_code":500,"status":"500 oops","request_body":{"a":1}}`)
	require.Len(t, bodies, 1)
	assert.Equal(t, "request", bodies[0].Kind)
	for _, body := range bodies {
		assert.NotContains(t, body.JSON, "abc-123")
	}
}

func TestStringPayloadRules(t *testing.T) {
	// Too short outside the explicit fields.
	assert.Empty(t, collect(`{"wrapper":{"request_payload":"short"}}`))

	// Structured-looking strings qualify from sixteen characters.
	bodies := collect(`{"wrapper":{"request_payload":"{\"key\":\"some-value\"}"}}`)
	require.Len(t, bodies, 1)
	assert.Equal(t, "request", bodies[0].Kind)

	// Free text needs real length.
	long := strings.Repeat("x", 80)
	bodies = collect(`{"wrapper":{"response_content":"` + long + `"}}`)
	require.Len(t, bodies, 1)
	assert.Equal(t, "response", bodies[0].Kind)

	assert.Empty(t, collect(`{"wrapper":{"response_content":"`+strings.Repeat("x", 40)+`"}}`))
}

func TestSweepDepthBound(t *testing.T) {
	shallow := collect(`{"a":{"request_body":{"x":"y"}}}`)
	assert.Len(t, shallow, 1)

	deep := collect(`{"a":{"b":{"c":{"d":{"e":{"request_body":{"x":"y"}}}}}}}`)
	assert.Empty(t, deep)
}

func TestArrayElementsAreSwept(t *testing.T) {
	bodies := collect(`{"data":[{"response_body":{"r":1}},{"response_body":{"r":2}}]}`)
	require.Len(t, bodies, 2)
	assert.Equal(t, []string{"response", "response"}, kinds(bodies))
}

func TestEmptyStructuresAreSkipped(t *testing.T) {
	assert.Empty(t, collect(`{"request_payload":{},"response_items":[]}`))
}
