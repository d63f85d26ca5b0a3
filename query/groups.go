package query

import (
	"sort"
	"time"

	"terraform-logviewer-go/database"
	"terraform-logviewer-go/logentry"
)

// Group is all the records sharing one request id: one logical operation's
// trace.  Records with no request id form one combined group with an empty
// id.
type Group struct {
	ReqID          string              `json:"req_id,omitempty"`
	FirstTimestamp time.Time           `json:"first_timestamp"`
	LastTimestamp  time.Time           `json:"last_timestamp"`
	Entries        []logentry.LogEntry `json:"entries"`
}

type groupRow struct {
	ReqID   string    `gorm:"column:req_id"`
	FirstTS time.Time `gorm:"column:first_ts"`
	LastTS  time.Time `gorm:"column:last_ts"`
}

// SearchGroups paginates over groups - not raw records - ordered by most
// recent activity, then re-selects the member records for exactly the
// groups on the page, ordered for trace reconstruction.
func SearchGroups(p Params) (int64, []Group, error) {
	db := database.DBConn

	var total int64
	row := buildQuery(db, p).Select("COUNT(DISTINCT COALESCE(req_id, ''))").Row()
	if err := row.Scan(&total); err != nil {
		return 0, nil, err
	}
	if total == 0 {
		return 0, []Group{}, nil
	}

	rows := []groupRow{}
	err := buildQuery(db, p).
		Select("COALESCE(req_id, '') AS req_id, MIN(ts) AS first_ts, MAX(ts) AS last_ts").
		Group("COALESCE(req_id, '')").
		Order("last_ts DESC").
		Offset(p.Page * p.Size).
		Limit(p.Size).
		Scan(&rows).Error
	if err != nil {
		return 0, nil, err
	}
	if len(rows) == 0 {
		return total, []Group{}, nil
	}

	keys := []string{}
	includeBlank := false
	for _, row := range rows {
		if row.ReqID == "" {
			includeBlank = true
		} else {
			keys = append(keys, row.ReqID)
		}
	}

	members := buildQuery(db, p)
	switch {
	case len(keys) > 0 && includeBlank:
		members = members.Where("(req_id IN ? OR req_id IS NULL OR req_id = '')", keys)
	case len(keys) > 0:
		members = members.Where("req_id IN ?", keys)
	default:
		members = members.Where("(req_id IS NULL OR req_id = '')")
	}

	entries := []logentry.LogEntry{}
	err = members.
		Order("req_id ASC, ts ASC, id ASC").
		Preload("Bodies").
		Find(&entries).Error
	if err != nil {
		return 0, nil, err
	}

	return total, assembleGroups(rows, entries), nil
}

// ExportGroups returns every group matching the filter, ordered by last
// activity descending, without pagination.
func ExportGroups(p Params) ([]Group, error) {
	db := database.DBConn

	entries := []logentry.LogEntry{}
	err := buildQuery(db, p).
		Order("req_id ASC, ts ASC, id ASC").
		Preload("Bodies").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	groups := groupEntries(entries)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].LastTimestamp.After(groups[j].LastTimestamp)
	})
	return groups, nil
}

// assembleGroups attaches member records to the page of group rows,
// preserving the rows' activity ordering and each group's time bounds.
func assembleGroups(rows []groupRow, entries []logentry.LogEntry) []Group {
	grouped := map[string][]logentry.LogEntry{}
	for _, entry := range entries {
		grouped[entry.ReqID] = append(grouped[entry.ReqID], entry)
	}
	for _, members := range grouped {
		sortMembers(members)
	}

	groups := make([]Group, 0, len(rows))
	for _, row := range rows {
		members := grouped[row.ReqID]
		if members == nil {
			members = []logentry.LogEntry{}
		}
		groups = append(groups, Group{
			ReqID:          row.ReqID,
			FirstTimestamp: row.FirstTS,
			LastTimestamp:  row.LastTS,
			Entries:        members,
		})
	}
	return groups
}

// groupEntries groups an already-sorted record list by request id, deriving
// each group's bounds from its members.
func groupEntries(entries []logentry.LogEntry) []Group {
	order := []string{}
	grouped := map[string][]logentry.LogEntry{}
	for _, entry := range entries {
		if _, ok := grouped[entry.ReqID]; !ok {
			order = append(order, entry.ReqID)
		}
		grouped[entry.ReqID] = append(grouped[entry.ReqID], entry)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		members := grouped[key]
		sortMembers(members)
		groups = append(groups, Group{
			ReqID:          key,
			FirstTimestamp: members[0].Timestamp,
			LastTimestamp:  members[len(members)-1].Timestamp,
			Entries:        members,
		})
	}
	return groups
}

// Members are ordered by timestamp, then id for ties.
func sortMembers(members []logentry.LogEntry) {
	sort.SliceStable(members, func(i, j int) bool {
		if !members[i].Timestamp.Equal(members[j].Timestamp) {
			return members[i].Timestamp.Before(members[j].Timestamp)
		}
		return members[i].ID < members[j].ID
	})
}
