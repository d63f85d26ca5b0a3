package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseJSONPlanLine(t *testing.T) {
	ctx := &ImportContext{}
	rec := Parse(`{"timestamp":"2024-05-10T12:00:00Z","message":"Starting Terraform plan for prod"}`, ctx)

	assert.Equal(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC), rec.Timestamp)
	assert.False(t, rec.TimestampGuessed)
	assert.Equal(t, "plan", rec.Section)
	assert.Equal(t, "Starting Terraform plan for prod", rec.Message)

	// No level anywhere, so the default applies and is flagged.
	assert.Equal(t, "INFO", rec.Level)
	assert.True(t, rec.LevelGuessed)
}

func TestParseJSONApplyWithPayloads(t *testing.T) {
	ctx := &ImportContext{}
	rec := Parse(`{"ts":"2024-05-10T12:00:01Z","level":"debug","msg":"terraform apply response received",`+
		`"tf_req_id":"req-1","http_request":{"method":"PUT","path":"/v1/things"},`+
		`"http_response":{"status":200,"body":"ok"}}`, ctx)

	assert.Equal(t, "DEBUG", rec.Level)
	assert.False(t, rec.LevelGuessed)
	assert.Equal(t, "apply", rec.Section)
	assert.Equal(t, "req-1", rec.ReqID)

	require.Len(t, rec.Bodies, 2)
	assert.Equal(t, "request", rec.Bodies[0].Kind)
	assert.Contains(t, rec.Bodies[0].JSON, `"method":"PUT"`)
	assert.Equal(t, "response", rec.Bodies[1].Kind)
	assert.Contains(t, rec.Bodies[1].JSON, `"status":200`)
}

func TestParsePlainApplyLine(t *testing.T) {
	ctx := &ImportContext{}
	raw := "2024-05-13T09:15:30Z [error] Terraform APPLY failed"
	rec := Parse(raw, ctx)

	assert.Equal(t, time.Date(2024, 5, 13, 9, 15, 30, 0, time.UTC), rec.Timestamp)
	assert.False(t, rec.TimestampGuessed)
	assert.Equal(t, "ERROR", rec.Level)
	assert.False(t, rec.LevelGuessed)
	assert.Equal(t, "apply", rec.Section)
	assert.Equal(t, raw, rec.Message)
}

func TestPlainRawJSONIsValid(t *testing.T) {
	ctx := &ImportContext{}
	raw := `provider returned "odd" output` + "\n\twith tabs"
	rec := Parse(raw, ctx)

	require.True(t, gjson.Valid(rec.RawJSON))
	assert.Equal(t, raw, gjson.Get(rec.RawJSON, "message").String())
	assert.Equal(t, rec.Level, gjson.Get(rec.RawJSON, "level").String())
}

func TestContextCarryOver(t *testing.T) {
	ctx := &ImportContext{}

	first := Parse(`{"@timestamp":"2024-05-10T12:00:00Z","@level":"warn","@message":"plan phase start"}`, ctx)
	assert.False(t, first.TimestampGuessed)
	assert.False(t, first.LevelGuessed)

	second := Parse(`{"message":"still working"}`, ctx)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.True(t, second.TimestampGuessed)
	assert.Equal(t, "WARN", second.Level)
	assert.True(t, second.LevelGuessed)

	third := Parse("no markers at all here", ctx)
	assert.Equal(t, first.Timestamp, third.Timestamp)
	assert.True(t, third.TimestampGuessed)
	assert.Equal(t, "WARN", third.Level)
	assert.True(t, third.LevelGuessed)
}

func TestParseIsRepeatable(t *testing.T) {
	raw := `{"timestamp":"2024-05-10T12:00:00Z","level":"info","message":"terraform plan",` +
		`"tf_req_id":"req-9","status_code":403,"request_body":{"q":"x"}}`

	ctx1 := &ImportContext{}
	ctx2 := &ImportContext{}
	assert.Equal(t, Parse(raw, ctx1), Parse(raw, ctx2))
}

func TestParseBlankLine(t *testing.T) {
	ctx := &ImportContext{}
	rec := Parse("", ctx)

	assert.True(t, rec.TimestampGuessed)
	assert.False(t, rec.Timestamp.IsZero())
	assert.Equal(t, "INFO", rec.Level)
	assert.True(t, rec.LevelGuessed)
	assert.Equal(t, "unknown", rec.Section)
}

func TestParseMalformedJSON(t *testing.T) {
	ctx := &ImportContext{}
	raw := `{"level": "info", "message": "truncated`
	rec := Parse(raw, ctx)

	// Invalid JSON is plain text, cut-off fields and all.
	assert.Equal(t, raw, rec.Message)
	assert.True(t, rec.LevelGuessed)
	assert.Equal(t, "unknown", rec.Section)
}

func TestStatusCodeFromMessageTokens(t *testing.T) {
	ctx := &ImportContext{}
	rec := Parse(`{"msg":"request finished status_code=404"}`, ctx)
	require.NotNil(t, rec.StatusCode)
	assert.Equal(t, 404, *rec.StatusCode)

	rec = Parse("provider call done status=200 req_id=r-77", ctx)
	require.NotNil(t, rec.StatusCode)
	assert.Equal(t, 200, *rec.StatusCode)
	assert.Equal(t, "r-77", rec.ReqID)
}

func TestAttributesCopyTopLevelFields(t *testing.T) {
	ctx := &ImportContext{}
	rec := Parse(`{"message":"hi","count":3,"nested":{"a":1}}`, ctx)

	assert.Equal(t, "hi", rec.Attributes["message"])
	assert.Equal(t, float64(3), rec.Attributes["count"])
	assert.Equal(t, `{"a":1}`, rec.Attributes["nested"])
}
