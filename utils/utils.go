package utils

import (
	"strings"
)

// We have constants here rather than in the packages you might expect to avoid import loops.
const SECTION_PLAN = "plan"
const SECTION_APPLY = "apply"
const SECTION_UNKNOWN = "unknown"

const LEVEL_DEFAULT = "INFO"

// Sentinel used on timelines for records which have no request id.
const REQID_UNKNOWN = "unknown"

const PAGE_SIZE_DEFAULT = 50
const PAGE_SIZE_MAX = 500

const PAYLOAD_REQUEST = "request"
const PAYLOAD_RESPONSE = "response"
const PAYLOAD_ERROR = "error"
const PAYLOAD_PAYLOAD = "payload"
const PAYLOAD_BODY = "body"

// HasText reports whether s contains anything other than whitespace.
func HasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
