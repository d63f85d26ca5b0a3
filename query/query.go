// Package query implements the read paths over persisted log entries:
// filtered record pages, request-id groups, exports, timelines and the
// unread flag mutation.
package query

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"terraform-logviewer-go/database"
	"terraform-logviewer-go/logentry"
	"terraform-logviewer-go/utils"
)

// Recognized filter keys and the columns they act on.  Unrecognized keys
// are ignored.
var filterMapping = map[string]string{
	"req_id":           "req_id",
	"tf_req_id":        "req_id",
	"trans_id":         "trans_id",
	"rpc":              "rpc",
	"resource_type":    "resource_type",
	"tf_resource_type": "resource_type",
	"data_source_type": "data_source_type",
	"http_op_type":     "http_op_type",
	"status_code":      "status_code",
	"import_id":        "import_id",
}

// Allow-list of external sort keys.
var sortMapping = map[string]string{
	"ts":               "ts",
	"level":            "level",
	"section":          "section",
	"module":           "module",
	"message":          "message",
	"req_id":           "req_id",
	"trans_id":         "trans_id",
	"rpc":              "rpc",
	"resource_type":    "resource_type",
	"data_source_type": "data_source_type",
	"http_op_type":     "http_op_type",
	"status_code":      "status_code",
	"file_name":        "file_name",
	"import_id":        "import_id",
}

// Params is the normalized query-parameter set.
type Params struct {
	Page         int
	Size         int
	From         *time.Time
	To           *time.Time
	Level        string
	Section      string
	UnreadOnly   bool
	Query        string
	Filters      map[string]string
	SortBy       string
	SortDesc     bool
	GroupByReqID bool
}

// ParamsFromRequest reads and bounds the query string, then applies the
// filter policy to the filter map.
func ParamsFromRequest(c *fiber.Ctx) Params {
	page, _ := strconv.Atoi(c.Query("page", "0"))
	if page < 0 {
		page = 0
	}

	size, _ := strconv.Atoi(c.Query("size", "0"))
	if size <= 0 {
		size = utils.PAGE_SIZE_DEFAULT
	} else if size > utils.PAGE_SIZE_MAX {
		size = utils.PAGE_SIZE_MAX
	}

	filters := map[string]string{}
	for key := range filterMapping {
		if value := c.Query(key, ""); utils.HasText(value) {
			filters[key] = value
		}
	}

	return Params{
		Page:         page,
		Size:         size,
		From:         parseTimeParam(c.Query("ts_from", "")),
		To:           parseTimeParam(c.Query("ts_to", "")),
		Level:        c.Query("level", ""),
		Section:      c.Query("section", ""),
		UnreadOnly:   c.QueryBool("unread_only", false),
		Query:        c.Query("q", ""),
		Filters:      applyFilterPolicy(filters),
		SortBy:       c.Query("sort_by", ""),
		SortDesc:     c.QueryBool("sort_desc", false),
		GroupByReqID: c.QueryBool("group_by_req_id", false),
	}
}

func parseTimeParam(value string) *time.Time {
	if !utils.HasText(value) {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// Unparsable timestamps are ignored rather than rejected.
		return nil
	}
	return &ts
}

// applyFilterPolicy removes blocked filter keys and forces configured
// key/value pairs, per the QUERY_FILTER_BLOCKED and QUERY_FILTER_FORCED
// environment variables.
func applyFilterPolicy(filters map[string]string) map[string]string {
	blocked := os.Getenv("QUERY_FILTER_BLOCKED")
	forced := os.Getenv("QUERY_FILTER_FORCED")

	if blocked == "" && forced == "" {
		return filters
	}

	for _, key := range strings.Split(blocked, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		for existing := range filters {
			if strings.EqualFold(existing, key) {
				delete(filters, existing)
			}
		}
	}

	for _, pair := range strings.Split(forced, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		if key == "" || value == "" {
			continue
		}
		filters[key] = value
	}

	return filters
}

// buildQuery translates Params into a composable set of AND predicates.
func buildQuery(db *gorm.DB, p Params) *gorm.DB {
	q := db.Model(&logentry.LogEntry{})

	if p.From != nil {
		q = q.Where("ts >= ?", *p.From)
	}
	if p.To != nil {
		q = q.Where("ts <= ?", *p.To)
	}
	if utils.HasText(p.Level) {
		q = q.Where("UPPER(level) = ?", strings.ToUpper(p.Level))
	}
	if utils.HasText(p.Section) {
		q = q.Where("section = ?", strings.ToLower(p.Section))
	}
	if p.UnreadOnly {
		q = q.Where("unread = ?", true)
	}
	if utils.HasText(p.Query) {
		pattern := "%" + strings.ToLower(p.Query) + "%"
		q = q.Where("(LOWER(COALESCE(message, '')) LIKE ? OR LOWER(COALESCE(module, '')) LIKE ? OR LOWER(COALESCE(raw_json, '')) LIKE ?)",
			pattern, pattern, pattern)
	}

	for key, value := range p.Filters {
		if !utils.HasText(value) {
			continue
		}
		column, ok := filterMapping[key]
		if !ok {
			continue
		}
		if column == "status_code" {
			status, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				continue
			}
			q = q.Where("status_code = ?", status)
		} else {
			q = q.Where("LOWER(COALESCE("+column+", '')) = ?", strings.ToLower(value))
		}
	}

	return q
}

// orderClause resolves the sort allow-list, with id as a tiebreaker and a
// stable ts desc, id desc default.
func orderClause(p Params) string {
	if utils.HasText(p.SortBy) {
		if column, ok := sortMapping[strings.ToLower(p.SortBy)]; ok {
			direction := "ASC"
			if p.SortDesc {
				direction = "DESC"
			}
			return column + " " + direction + ", id " + direction
		}
	}
	return "ts DESC, id DESC"
}

// Search returns one page of records matching the filter, with their
// payload bodies, plus the total match count.
func Search(p Params) (int64, []logentry.LogEntry, error) {
	db := database.DBConn

	var total int64
	if err := buildQuery(db, p).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	entries := []logentry.LogEntry{}
	err := buildQuery(db, p).
		Order(orderClause(p)).
		Offset(p.Page * p.Size).
		Limit(p.Size).
		Preload("Bodies").
		Find(&entries).Error

	return total, entries, err
}

// Export returns the full filtered record list, sorted.
func Export(p Params) ([]logentry.LogEntry, error) {
	db := database.DBConn

	entries := []logentry.LogEntry{}
	err := buildQuery(db, p).
		Order(orderClause(p)).
		Preload("Bodies").
		Find(&entries).Error

	return entries, err
}

// FindByID fetches one record with its bodies.
func FindByID(id uint64) (logentry.LogEntry, error) {
	db := database.DBConn

	var entry logentry.LogEntry
	err := db.Preload("Bodies").First(&entry, id).Error
	return entry, err
}

// MarkRead flips the unread flag for explicit ids, or for every record in
// a request group, returning the number updated.
func MarkRead(ids []uint64, reqID string, markRead bool) (int64, error) {
	db := database.DBConn

	if len(ids) > 0 {
		result := db.Model(&logentry.LogEntry{}).Where("id IN ?", ids).Update("unread", !markRead)
		return result.RowsAffected, result.Error
	}
	if utils.HasText(reqID) {
		result := db.Model(&logentry.LogEntry{}).Where("req_id = ?", reqID).Update("unread", !markRead)
		return result.RowsAffected, result.Error
	}
	return 0, nil
}
