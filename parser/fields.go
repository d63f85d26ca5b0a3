package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"terraform-logviewer-go/utils"
)

// Depth limit for recursive field searches.
const maxFieldDepth = 3

// Candidate field names, scanned in order.
var timestampFields = []string{"@timestamp", "timestamp", "ts", "time", "datetime", "logged_at", "created_at"}
var levelFields = []string{"level", "lvl", "severity", "log_level", "@level", "priority"}

// @message first because tflog uses it.
var messageFields = []string{"@message", "message", "msg", "event", "log", "body"}

var reqIDFields = []string{"req_id", "request_id", "tf_req_id", "requestId"}
var reqIDTokenFields = []string{"req_id", "request_id", "tf_req_id"}
var transIDFields = []string{"trans_id", "transaction_id", "trace_id", "tf_trans_id"}
var rpcFields = []string{"rpc", "rpc_method", "rpc_name", "rpc_call", "operation", "tf_rpc"}
var rpcTokenFields = []string{"rpc", "rpc_method", "rpc_name"}
var resourceTypeFields = []string{"tf_resource_type", "resource_type"}
var dataSourceTypeFields = []string{"data_source_type", "tf_data_source_type"}
var httpMethodFields = []string{"http_op_type", "method", "http_method", "http_verb", "verb"}
var statusCodeFields = []string{"status_code", "http_status", "status", "statusCode"}

var moduleFields = []string{"module", "module_path", "module_addr", "module_name", "module_address",
	"moduleId", "moduleID", "moduleKey", "moduleDisplayName", "component", "logger", "source", "@module"}
var moduleTokenFields = []string{"module", "module_path", "module_addr", "module_name", "component", "logger", "@module"}

// ISO-8601 at the start of a line, with Z or an offset.
var isoPrefixRegex = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.\d]*)(?:Z|[+-]\d{2}:?\d{2}))`)

var levelPrefixRegex = regexp.MustCompile(`(?i)^\[?(TRACE|DEBUG|INFO|WARN|ERROR|FATAL)(?:\]|:|\s)`)

// key=value tokens inside message text.
var kvRegex = regexp.MustCompile(`(?:^|\s)([A-Za-z0-9_.-]+)=(\S+)`)

var moduleRegex = regexp.MustCompile(`\bmodule\.[A-Za-z0-9_.-]+(?:\.[A-Za-z0-9_.-]+)?`)

var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999Z07:00",
	"2006-01-02 15:04:05.999Z0700",
	"2006-01-02 15:04:05.999",
	"2006/01/02 15:04:05.999Z07:00",
	"2006/01/02 15:04:05.999Z0700",
	"2006/01/02 15:04:05.999",
}

// --- Timestamp ---------------------------------------------------------------------------------

func findTimestamp(node gjson.Result) (time.Time, bool) {
	for _, field := range timestampFields {
		value := objectField(node, field)
		if value.Exists() && isValueNode(value) {
			if ts, ok := parseTimestampValue(value); ok {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func parseTimestampValue(value gjson.Result) (time.Time, bool) {
	if value.Type == gjson.Number {
		millis := value.Int()
		// Epochs of up to ten digits are seconds, longer ones milliseconds.
		if len(strconv.FormatInt(millis, 10)) <= 10 {
			millis *= 1000
		}
		return time.UnixMilli(millis).UTC(), true
	}
	if value.Type == gjson.String {
		text := value.String()
		for _, format := range timestampFormats {
			if ts, err := time.Parse(format, text); err == nil {
				return ts, true
			}
		}
		return extractTimestampFromText(text)
	}
	return time.Time{}, false
}

func extractTimestampFromText(raw string) (time.Time, bool) {
	match := isoPrefixRegex.FindStringSubmatch(raw)
	if match == nil {
		return time.Time{}, false
	}
	for _, format := range timestampFormats {
		if ts, err := time.Parse(format, match[1]); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// --- Level -------------------------------------------------------------------------------------

func findLevel(node gjson.Result) (string, bool) {
	for _, field := range levelFields {
		value := objectField(node, field)
		if value.Exists() && isValueNode(value) && utils.HasText(value.String()) {
			return strings.ToUpper(value.String()), true
		}
	}
	return "", false
}

// extractLevelFromText looks for a severity token within the first few
// whitespace-delimited segments of the line.
func extractLevelFromText(raw string) (string, bool) {
	candidate := strings.TrimSpace(raw)
	for i := 0; i < 3 && utils.HasText(candidate); i++ {
		if match := levelPrefixRegex.FindStringSubmatch(candidate); match != nil {
			return strings.ToUpper(match[1]), true
		}
		space := strings.IndexByte(candidate, ' ')
		if space < 0 {
			break
		}
		candidate = strings.TrimSpace(candidate[space+1:])
	}
	return "", false
}

// --- Generic JSON field access -----------------------------------------------------------------

// objectField returns the named top-level field.  gjson path syntax gives
// special meaning to @ and dots, which field names like @timestamp and
// module.addr would trip over, so we iterate rather than use Get.
func objectField(node gjson.Result, name string) gjson.Result {
	var found gjson.Result
	node.ForEach(func(key, value gjson.Result) bool {
		if key.String() == name {
			found = value
			return false
		}
		return true
	})
	return found
}

func isValueNode(value gjson.Result) bool {
	return value.Exists() && !value.IsObject() && !value.IsArray()
}

func findFirstString(node gjson.Result, candidates []string) (string, bool) {
	for _, field := range candidates {
		value := objectField(node, field)
		if isValueNode(value) && utils.HasText(value.String()) {
			return value.String(), true
		}
	}
	return "", false
}

// findStringDeep searches candidate fields breadth-first at each object,
// then descends, bounded by depth.
func findStringDeep(node gjson.Result, candidates []string, depth int) (string, bool) {
	if depth < 0 || !node.Exists() {
		return "", false
	}
	if node.IsObject() {
		for _, field := range candidates {
			value := objectField(node, field)
			if isValueNode(value) && utils.HasText(value.String()) {
				return value.String(), true
			}
		}
		result := ""
		found := false
		node.ForEach(func(key, child gjson.Result) bool {
			if nested, ok := findStringDeep(child, candidates, depth-1); ok {
				result = nested
				found = true
				return false
			}
			return true
		})
		return result, found
	}
	if node.IsArray() {
		result := ""
		found := false
		node.ForEach(func(_, child gjson.Result) bool {
			if nested, ok := findStringDeep(child, candidates, depth-1); ok {
				result = nested
				found = true
				return false
			}
			return true
		})
		return result, found
	}
	return "", false
}

func findIntDeep(node gjson.Result, candidates []string) *int {
	return findIntDeepBounded(node, candidates, maxFieldDepth)
}

func findIntDeepBounded(node gjson.Result, candidates []string, depth int) *int {
	if depth < 0 || !node.Exists() {
		return nil
	}
	if node.IsObject() {
		for _, field := range candidates {
			if parsed := parseIntValue(objectField(node, field)); parsed != nil {
				return parsed
			}
		}
		var result *int
		node.ForEach(func(key, child gjson.Result) bool {
			if nested := findIntDeepBounded(child, candidates, depth-1); nested != nil {
				result = nested
				return false
			}
			return true
		})
		return result
	}
	if node.IsArray() {
		var result *int
		node.ForEach(func(_, child gjson.Result) bool {
			if nested := findIntDeepBounded(child, candidates, depth-1); nested != nil {
				result = nested
				return false
			}
			return true
		})
		return result
	}
	return nil
}

func parseIntValue(value gjson.Result) *int {
	if !value.Exists() {
		return nil
	}
	if value.Type == gjson.Number {
		n := int(value.Int())
		return &n
	}
	if value.Type == gjson.String {
		return parseInt(value.String())
	}
	return nil
}

func parseInt(value string) *int {
	if !utils.HasText(value) {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil
	}
	return &n
}

// --- Module ------------------------------------------------------------------------------------

func findModule(node *gjson.Result, message string, tokens []kvToken) string {
	if node != nil {
		if value, ok := findStringDeep(*node, moduleFields, maxFieldDepth); ok {
			return value
		}
	}
	if value := tokenValue(tokens, moduleTokenFields); utils.HasText(value) {
		return value
	}
	return moduleRegex.FindString(message)
}

// --- Attributes --------------------------------------------------------------------------------

// extractAttributes copies every top-level field: scalars natively, nested
// structures as their JSON text.
func extractAttributes(node gjson.Result) map[string]interface{} {
	attrs := map[string]interface{}{}
	node.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() || value.IsArray() {
			attrs[key.String()] = value.Raw
		} else {
			attrs[key.String()] = value.Value()
		}
		return true
	})
	return attrs
}

// --- key=value tokens --------------------------------------------------------------------------

type kvToken struct {
	Key   string
	Value string
}

// parseKeyValueTokens extracts key=value pairs, keeping the first value seen
// for each key, in order of appearance.
func parseKeyValueTokens(message string) []kvToken {
	var tokens []kvToken
	if !utils.HasText(message) {
		return tokens
	}
	seen := map[string]bool{}
	for _, match := range kvRegex.FindAllStringSubmatch(message, -1) {
		key := match[1]
		if seen[key] {
			continue
		}
		seen[key] = true
		tokens = append(tokens, kvToken{Key: key, Value: cleanToken(match[2])})
	}
	return tokens
}

// cleanToken trims surrounding quote and bracket punctuation from a token
// value.
func cleanToken(raw string) string {
	trimmed := strings.TrimSpace(raw)
	for len(trimmed) > 0 && strings.ContainsRune(`"'[{`, rune(trimmed[0])) {
		trimmed = trimmed[1:]
	}
	for len(trimmed) > 0 && strings.ContainsRune(`,;)"']}`, rune(trimmed[len(trimmed)-1])) {
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-1])
	}
	return trimmed
}

func tokenValue(tokens []kvToken, candidates []string) string {
	for _, candidate := range candidates {
		for _, token := range tokens {
			if token.Key == candidate && utils.HasText(token.Value) {
				return token.Value
			}
		}
	}
	return ""
}

// --- HTTP method -------------------------------------------------------------------------------

var nonLetterRegex = regexp.MustCompile(`[^A-Za-z]`)

// normalizeHTTPMethod trims to the first whitespace-delimited token, strips
// non-letters and upper-cases.
func normalizeHTTPMethod(method string) string {
	candidate := strings.TrimSpace(method)
	if candidate == "" {
		return ""
	}
	if space := strings.IndexByte(candidate, ' '); space > 0 {
		candidate = candidate[:space]
	}
	candidate = nonLetterRegex.ReplaceAllString(candidate, "")
	return strings.ToUpper(candidate)
}
