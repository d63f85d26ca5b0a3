package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terraform-logviewer-go/logentry"
)

func entryAt(id uint64, reqID string, ts time.Time) logentry.LogEntry {
	return logentry.LogEntry{ID: id, ReqID: reqID, Timestamp: ts}
}

func TestAssembleGroupsKeepsRowOrder(t *testing.T) {
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	rows := []groupRow{
		{ReqID: "r-2", FirstTS: base.Add(2 * time.Minute), LastTS: base.Add(9 * time.Minute)},
		{ReqID: "r-1", FirstTS: base, LastTS: base.Add(time.Minute)},
	}
	entries := []logentry.LogEntry{
		entryAt(1, "r-1", base),
		entryAt(2, "r-1", base.Add(time.Minute)),
		entryAt(3, "r-2", base.Add(9*time.Minute)),
		entryAt(4, "r-2", base.Add(2*time.Minute)),
	}

	groups := assembleGroups(rows, entries)
	require.Len(t, groups, 2)

	// Page ordering comes from the rows (most recent activity first).
	assert.Equal(t, "r-2", groups[0].ReqID)
	assert.Equal(t, "r-1", groups[1].ReqID)
	assert.Equal(t, base.Add(2*time.Minute), groups[0].FirstTimestamp)
	assert.Equal(t, base.Add(9*time.Minute), groups[0].LastTimestamp)

	// Members come back chronological regardless of input order.
	require.Len(t, groups[0].Entries, 2)
	assert.Equal(t, uint64(4), groups[0].Entries[0].ID)
	assert.Equal(t, uint64(3), groups[0].Entries[1].ID)
}

func TestAssembleGroupsEmptyGroup(t *testing.T) {
	rows := []groupRow{{ReqID: "r-gone"}}
	groups := assembleGroups(rows, nil)

	require.Len(t, groups, 1)
	assert.NotNil(t, groups[0].Entries)
	assert.Empty(t, groups[0].Entries)
}

func TestGroupEntriesDerivesBounds(t *testing.T) {
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	entries := []logentry.LogEntry{
		entryAt(1, "", base),
		entryAt(2, "", base.Add(time.Minute)),
		entryAt(3, "r-1", base.Add(2*time.Minute)),
		entryAt(4, "r-1", base.Add(5*time.Minute)),
	}

	groups := groupEntries(entries)
	require.Len(t, groups, 2)

	// Records without a request id form their own combined group.
	assert.Equal(t, "", groups[0].ReqID)
	assert.Equal(t, base, groups[0].FirstTimestamp)
	assert.Equal(t, base.Add(time.Minute), groups[0].LastTimestamp)

	assert.Equal(t, "r-1", groups[1].ReqID)
	assert.Equal(t, base.Add(2*time.Minute), groups[1].FirstTimestamp)
	assert.Equal(t, base.Add(5*time.Minute), groups[1].LastTimestamp)
}

func TestSortMembersTieBreaksOnID(t *testing.T) {
	ts := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	members := []logentry.LogEntry{
		entryAt(9, "r-1", ts),
		entryAt(2, "r-1", ts),
		entryAt(5, "r-1", ts.Add(-time.Second)),
	}

	sortMembers(members)

	assert.Equal(t, uint64(5), members[0].ID)
	assert.Equal(t, uint64(2), members[1].ID)
	assert.Equal(t, uint64(9), members[2].ID)
}
