package query

import (
	"time"

	"terraform-logviewer-go/database"
	"terraform-logviewer-go/logentry"
	"terraform-logviewer-go/utils"
)

// TimelinePoint summarises one (request id, import id) pair: how many
// records it has and the time span they cover.
type TimelinePoint struct {
	ReqID    string    `json:"req_id" gorm:"column:req_id"`
	Start    time.Time `json:"start" gorm:"column:start_ts"`
	End      time.Time `json:"end" gorm:"column:end_ts"`
	Count    int64     `json:"count" gorm:"column:cnt"`
	ImportID string    `json:"import_id" gorm:"column:import_id"`
}

// Timeline groups records by (request id, import id) under the given
// narrowing, computing per-pair bounds and counts.  Records without a
// request id fall under the "unknown" sentinel.
func Timeline(reqID string, from *time.Time, to *time.Time, importID string) ([]TimelinePoint, error) {
	db := database.DBConn

	q := db.Model(&logentry.LogEntry{})
	if utils.HasText(reqID) {
		q = q.Where("req_id = ?", reqID)
	}
	if from != nil {
		q = q.Where("ts >= ?", *from)
	}
	if to != nil {
		q = q.Where("ts <= ?", *to)
	}
	if utils.HasText(importID) {
		q = q.Where("import_id = ?", importID)
	}

	points := []TimelinePoint{}
	err := q.
		Select("COALESCE(NULLIF(req_id, ''), '"+utils.REQID_UNKNOWN+"') AS req_id, "+
			"MIN(ts) AS start_ts, MAX(ts) AS end_ts, COUNT(*) AS cnt, COALESCE(import_id, '') AS import_id").
		Group("COALESCE(NULLIF(req_id, ''), '" + utils.REQID_UNKNOWN + "'), COALESCE(import_id, '')").
		Scan(&points).Error

	return points, err
}
