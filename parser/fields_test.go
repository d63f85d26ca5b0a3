package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestTimestampStringFormats(t *testing.T) {
	expected := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	for _, raw := range []string{
		`{"timestamp":"2024-05-10T12:00:00Z"}`,
		`{"ts":"2024-05-10T12:00:00.000Z"}`,
		`{"time":"2024-05-10 12:00:00"}`,
		`{"datetime":"2024/05/10 12:00:00"}`,
	} {
		ts, found := findTimestamp(gjson.Parse(raw))
		require.True(t, found, raw)
		assert.True(t, expected.Equal(ts), raw)
	}
}

func TestTimestampEpochs(t *testing.T) {
	ts, found := findTimestamp(gjson.Parse(`{"time":1715342400}`))
	require.True(t, found)
	assert.Equal(t, time.Unix(1715342400, 0).UTC(), ts)

	ts, found = findTimestamp(gjson.Parse(`{"time":1715342400123}`))
	require.True(t, found)
	assert.Equal(t, time.UnixMilli(1715342400123).UTC(), ts)
}

func TestTimestampMissing(t *testing.T) {
	_, found := findTimestamp(gjson.Parse(`{"timestamp":"not a date"}`))
	assert.False(t, found)

	_, found = findTimestamp(gjson.Parse(`{"message":"hello"}`))
	assert.False(t, found)
}

func TestLevelFieldPriority(t *testing.T) {
	level, found := findLevel(gjson.Parse(`{"severity":"warn","priority":"low"}`))
	require.True(t, found)
	assert.Equal(t, "WARN", level)
}

func TestLevelFromText(t *testing.T) {
	level, found := extractLevelFromText("INFO provider loaded")
	require.True(t, found)
	assert.Equal(t, "INFO", level)

	level, found = extractLevelFromText("2024-05-13T09:15:30Z [error] boom")
	require.True(t, found)
	assert.Equal(t, "ERROR", level)

	level, found = extractLevelFromText("2024-05-13 09:15:30 warn: disk low")
	require.True(t, found)
	assert.Equal(t, "WARN", level)

	// Only the first few segments are scanned.
	_, found = extractLevelFromText("a b c ERROR too far in")
	assert.False(t, found)

	_, found = extractLevelFromText("nothing resembling a severity")
	assert.False(t, found)
}

func TestParseKeyValueTokensFirstWins(t *testing.T) {
	tokens := parseKeyValueTokens(`req_id="abc-123", rpc=[GetSchema] req_id=other`)
	require.Len(t, tokens, 2)
	assert.Equal(t, kvToken{Key: "req_id", Value: "abc-123"}, tokens[0])
	assert.Equal(t, kvToken{Key: "rpc", Value: "GetSchema"}, tokens[1])
}

func TestCleanToken(t *testing.T) {
	assert.Equal(t, "abc-123", cleanToken(`"abc-123",`))
	assert.Equal(t, "GetSchema", cleanToken(`[GetSchema];`))
	assert.Equal(t, "x", cleanToken(`{x}`))
	assert.Equal(t, "plain", cleanToken("plain"))
}

func TestNormalizeHTTPMethod(t *testing.T) {
	assert.Equal(t, "GET", normalizeHTTPMethod("GET /v1/things HTTP/1.1"))
	assert.Equal(t, "POST", normalizeHTTPMethod("post"))
	assert.Equal(t, "PUT", normalizeHTTPMethod(" put! "))
	assert.Equal(t, "", normalizeHTTPMethod("   "))
}

func TestFindModule(t *testing.T) {
	node := gjson.Parse(`{"@module":"provider.aws","message":"hi"}`)
	assert.Equal(t, "provider.aws", findModule(&node, "hi", nil))

	tokens := parseKeyValueTokens("component=backend doing work")
	assert.Equal(t, "backend", findModule(nil, "component=backend doing work", tokens))

	assert.Equal(t, "module.network.subnet", findModule(nil, "applying changes to module.network.subnet now", nil))

	assert.Equal(t, "", findModule(nil, "nothing here", nil))
}

func TestFindStringDeepIsBounded(t *testing.T) {
	node := gjson.Parse(`{"a":{"b":{"tf_req_id":"shallow"}}}`)
	value, found := findStringDeep(node, reqIDFields, maxFieldDepth)
	require.True(t, found)
	assert.Equal(t, "shallow", value)

	node = gjson.Parse(`{"a":{"b":{"c":{"d":{"tf_req_id":"too-deep"}}}}}`)
	_, found = findStringDeep(node, reqIDFields, maxFieldDepth)
	assert.False(t, found)
}

func TestFindIntDeep(t *testing.T) {
	status := findIntDeep(gjson.Parse(`{"http_response":{"status":200}}`), statusCodeFields)
	require.NotNil(t, status)
	assert.Equal(t, 200, *status)

	status = findIntDeep(gjson.Parse(`{"status_code":"503"}`), statusCodeFields)
	require.NotNil(t, status)
	assert.Equal(t, 503, *status)

	assert.Nil(t, findIntDeep(gjson.Parse(`{"status_code":"soon"}`), statusCodeFields))
}
