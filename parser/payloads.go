package parser

import (
	"strings"

	"github.com/tidwall/gjson"
	"terraform-logviewer-go/utils"
)

// Payload extraction.  A handful of well-known top-level fields are always
// captured first, then a recursive sweep picks up anything else which looks
// like an embedded request/response/error body.  Everything is deduplicated
// on kind plus serialized text.

const maxPayloadDepth = 5

var explicitPayloadFields = []struct {
	field string
	kind  string
}{
	{"http_request", utils.PAYLOAD_REQUEST},
	{"http_response", utils.PAYLOAD_RESPONSE},
	{"request_body", utils.PAYLOAD_REQUEST},
	{"response_body", utils.PAYLOAD_RESPONSE},
	{"request", utils.PAYLOAD_REQUEST},
	{"response", utils.PAYLOAD_RESPONSE},
}

func collectBodies(node gjson.Result) []Payload {
	bodies := []Payload{}

	for _, explicit := range explicitPayloadFields {
		value := objectField(node, explicit.field)
		if !value.Exists() || value.Type == gjson.Null {
			continue
		}
		if json := payloadJSON(value); utils.HasText(json) {
			bodies = append(bodies, Payload{Kind: explicit.kind, JSON: json})
		}
	}

	// The explicit captures seed the dedup set for the sweep.
	seen := map[string]bool{}
	for _, payload := range bodies {
		seen[payload.Kind+":"+payload.JSON] = true
	}

	return sweepBodies(node, bodies, seen, 0, "")
}

func sweepBodies(node gjson.Result, bodies []Payload, seen map[string]bool, depth int, fieldName string) []Payload {
	if !node.Exists() || depth > maxPayloadDepth {
		return bodies
	}
	if node.IsObject() {
		if isBodyCandidate(fieldName, node) {
			bodies = addPayload(node, fieldName, bodies, seen)
		}
		node.ForEach(func(key, child gjson.Result) bool {
			bodies = sweepBodies(child, bodies, seen, depth+1, key.String())
			return true
		})
		return bodies
	}
	if node.IsArray() {
		node.ForEach(func(_, item gjson.Result) bool {
			bodies = sweepBodies(item, bodies, seen, depth+1, fieldName)
			return true
		})
		return bodies
	}
	if isBodyCandidate(fieldName, node) {
		bodies = addPayload(node, fieldName, bodies, seen)
	}
	return bodies
}

func addPayload(value gjson.Result, fieldName string, bodies []Payload, seen map[string]bool) []Payload {
	json := payloadJSON(value)
	if !utils.HasText(json) {
		return bodies
	}
	kind := resolvePayloadKind(fieldName)
	dedupeKey := kind + ":" + json
	if seen[dedupeKey] {
		return bodies
	}
	seen[dedupeKey] = true
	return append(bodies, Payload{Kind: kind, JSON: json})
}

func resolvePayloadKind(fieldName string) string {
	if !utils.HasText(fieldName) {
		return utils.PAYLOAD_PAYLOAD
	}
	lower := strings.ToLower(fieldName)
	if strings.Contains(lower, "request") && !strings.Contains(lower, "response") {
		return utils.PAYLOAD_REQUEST
	}
	if strings.Contains(lower, "response") {
		return utils.PAYLOAD_RESPONSE
	}
	if strings.Contains(lower, "error") {
		return utils.PAYLOAD_ERROR
	}
	if strings.Contains(lower, "payload") || strings.Contains(lower, "body") || strings.Contains(lower, "content") {
		return utils.PAYLOAD_PAYLOAD
	}
	return utils.PAYLOAD_BODY
}

// isBodyCandidate accepts fields whose name suggests an embedded payload,
// excluding identifier/status fields, and requires the value to have enough
// substance to be worth keeping.
func isBodyCandidate(fieldName string, value gjson.Result) bool {
	if !utils.HasText(fieldName) || !value.Exists() {
		return false
	}
	lower := strings.ToLower(fieldName)
	looksLikeID := strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, "id") ||
		strings.Contains(lower, "request_id") || strings.Contains(lower, "response_code") ||
		strings.Contains(lower, "status")
	if looksLikeID {
		return false
	}

	isRequest := strings.Contains(lower, "request")
	isResponse := strings.Contains(lower, "response")
	isPayload := strings.Contains(lower, "payload") || strings.Contains(lower, "body") || strings.Contains(lower, "content")
	if !isRequest && !isResponse && !isPayload {
		return false
	}

	if value.IsObject() || value.IsArray() {
		size := 0
		value.ForEach(func(_, _ gjson.Result) bool {
			size++
			return false
		})
		return size > 0
	}
	if value.Type == gjson.String {
		trimmed := strings.TrimSpace(value.String())
		if len(trimmed) < 16 {
			return false
		}
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "<") {
			return true
		}
		return len(trimmed) >= 80
	}
	return false
}

// payloadJSON serializes a payload value: scalars as their text, structures
// as their JSON text.
func payloadJSON(value gjson.Result) string {
	if !value.Exists() || value.Type == gjson.Null {
		return ""
	}
	if value.IsObject() || value.IsArray() {
		return value.Raw
	}
	return value.String()
}
