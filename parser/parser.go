// Package parser turns raw Terraform log lines - structured JSON or free
// text - into canonical records.  It never fails: anything which doesn't
// parse as a JSON object is treated as plain text, and timestamp/level fall
// back to the per-session ImportContext and then to hard defaults.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"terraform-logviewer-go/utils"
)

// Payload is an embedded request/response/error body found inside a record.
type Payload struct {
	Kind string `json:"kind"`
	JSON string `json:"json"`
}

// Record is the normalized form of one log line.
type Record struct {
	Timestamp         time.Time
	TimestampGuessed  bool
	Level             string
	LevelGuessed      bool
	Section           string
	Module            string
	Message           string
	ReqID             string
	TransactionID     string
	RPC               string
	ResourceType      string
	DataSourceType    string
	HTTPOperationType string
	StatusCode        *int
	Attributes        map[string]interface{}
	Bodies            []Payload
	RawJSON           string
}

// ImportContext carries the last resolved timestamp and level across the
// lines of one ingestion session.  Calls sharing a context must be
// serialized by the caller.
type ImportContext struct {
	LastTimestamp time.Time
	LastLevel     string
}

// Parse produces exactly one Record for raw and writes the resolved
// timestamp and level back into ctx for the next line.
func Parse(raw string, ctx *ImportContext) Record {
	var rec Record

	trimmed := strings.TrimSpace(raw)
	if gjson.Valid(trimmed) {
		if root := gjson.Parse(trimmed); root.IsObject() {
			rec = parseJSON(root, raw, ctx)
			ctx.LastTimestamp = rec.Timestamp
			ctx.LastLevel = rec.Level
			return rec
		}
	}

	rec = parsePlain(raw, ctx)
	ctx.LastTimestamp = rec.Timestamp
	ctx.LastLevel = rec.Level
	return rec
}

func parseJSON(node gjson.Result, raw string, ctx *ImportContext) Record {
	ts, tsFound := findTimestamp(node)
	ts, tsGuessed := applyTimestampDefaults(ts, tsFound, ctx)

	level, levelFound := findLevel(node)
	level, levelGuessed := applyLevelDefaults(level, levelFound, ctx)

	message, ok := findFirstString(node, messageFields)
	if !ok {
		message = node.Raw
	}

	tokens := parseKeyValueTokens(message)

	bodies := collectBodies(node)

	statusCode := findIntDeep(node, statusCodeFields)
	if statusCode == nil {
		statusCode = parseInt(tokenValue(tokens, statusCodeFields))
	}

	return Record{
		Timestamp:         ts,
		TimestampGuessed:  tsGuessed,
		Level:             level,
		LevelGuessed:      levelGuessed,
		Section:           resolveSection(&node, message, tokens),
		Module:            findModule(&node, message, tokens),
		Message:           message,
		ReqID:             findStringDeepOrToken(node, tokens, reqIDFields, reqIDTokenFields),
		TransactionID:     findStringDeepOrToken(node, tokens, transIDFields, transIDFields),
		RPC:               findStringDeepOrToken(node, tokens, rpcFields, rpcTokenFields),
		ResourceType:      findStringDeepOrToken(node, tokens, resourceTypeFields, resourceTypeFields),
		DataSourceType:    findStringDeepOrToken(node, tokens, dataSourceTypeFields, dataSourceTypeFields),
		HTTPOperationType: normalizeHTTPMethod(findStringDeepOrToken(node, tokens, httpMethodFields, httpMethodFields)),
		StatusCode:        statusCode,
		Attributes:        extractAttributes(node),
		Bodies:            bodies,
		RawJSON:           raw,
	}
}

func parsePlain(raw string, ctx *ImportContext) Record {
	ts, tsFound := extractTimestampFromText(raw)
	ts, tsGuessed := applyTimestampDefaults(ts, tsFound, ctx)

	level, levelFound := extractLevelFromText(raw)
	level, levelGuessed := applyLevelDefaults(level, levelFound, ctx)

	tokens := parseKeyValueTokens(raw)

	return Record{
		Timestamp:         ts,
		TimestampGuessed:  tsGuessed,
		Level:             level,
		LevelGuessed:      levelGuessed,
		Section:           resolveSection(nil, raw, tokens),
		Module:            findModule(nil, raw, tokens),
		Message:           raw,
		ReqID:             tokenValue(tokens, reqIDTokenFields),
		TransactionID:     tokenValue(tokens, transIDFields),
		RPC:               tokenValue(tokens, rpcTokenFields),
		ResourceType:      tokenValue(tokens, resourceTypeFields),
		DataSourceType:    tokenValue(tokens, dataSourceTypeFields),
		HTTPOperationType: normalizeHTTPMethod(tokenValue(tokens, httpMethodFields)),
		StatusCode:        parseInt(tokenValue(tokens, statusCodeFields)),
		Attributes:        map[string]interface{}{},
		Bodies:            []Payload{},
		RawJSON:           buildPlainJSON(raw, ts, level),
	}
}

// applyTimestampDefaults resolves a missing timestamp from the context, then
// the current time.  The guessed flag is set whenever no explicit value was
// found, including when the context supplied one.
func applyTimestampDefaults(ts time.Time, found bool, ctx *ImportContext) (time.Time, bool) {
	if found {
		return ts, false
	}
	if !ctx.LastTimestamp.IsZero() {
		return ctx.LastTimestamp, true
	}
	return time.Now().UTC(), true
}

func applyLevelDefaults(level string, found bool, ctx *ImportContext) (string, bool) {
	if found {
		return level, false
	}
	if utils.HasText(ctx.LastLevel) {
		return ctx.LastLevel, true
	}
	return utils.LEVEL_DEFAULT, true
}

func findStringDeepOrToken(node gjson.Result, tokens []kvToken, fields []string, tokenFields []string) string {
	if value, ok := findStringDeep(node, fields, maxFieldDepth); ok {
		return value
	}
	return tokenValue(tokens, tokenFields)
}

// buildPlainJSON wraps a plain text line in a minimal JSON document so the
// raw column is always valid JSON.
func buildPlainJSON(message string, ts time.Time, level string) string {
	var sb strings.Builder
	sb.WriteString(`{"message":`)
	sb.WriteString(quoteJSON(message))
	if !ts.IsZero() {
		sb.WriteString(`,"timestamp":`)
		sb.WriteString(quoteJSON(ts.Format(time.RFC3339Nano)))
	}
	if utils.HasText(level) {
		sb.WriteString(`,"level":`)
		sb.WriteString(quoteJSON(level))
	}
	sb.WriteString("}")
	return sb.String()
}

func quoteJSON(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				sb.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
