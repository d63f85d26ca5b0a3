// Package ingest owns import sessions: one bounded ingestion stream per
// uploaded file, with its own counters and parser carry-over context.
package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"terraform-logviewer-go/database"
	"terraform-logviewer-go/logentry"
	"terraform-logviewer-go/parser"
	"terraform-logviewer-go/plugin"
)

// Session is one import: counters plus the carry-over context.  Lines for
// one session must be ingested from a single goroutine; independent
// sessions can run in parallel.
type Session struct {
	ImportID string
	FileName string
	Total    int64
	Saved    int64
	Failed   int64
	Context  parser.ImportContext
}

func StartSession(fileName string) *Session {
	return &Session{
		ImportID: uuid.New().String(),
		FileName: fileName,
	}
}

// IngestLine parses and persists one line.  Failures are counted, never
// raised: a bad line must not abort the rest of the stream.  Annotators run
// after the record is durable, so a plugin timeout can only cost us the
// annotations, not the record.
func IngestLine(session *Session, raw string) {
	session.Total++

	rec := parser.Parse(raw, &session.Context)
	entry := toEntry(rec, session)

	db := database.DBConn
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		for _, payload := range rec.Bodies {
			body := logentry.LogBody{
				LogID:    entry.ID,
				Kind:     payload.Kind,
				BodyJSON: payload.JSON,
			}
			if err := tx.Create(&body).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		session.Failed++
		log.Printf("Failed to ingest line: %v", err)
		return
	}

	annotations := plugin.Annotate(toEvent(rec, entry))
	if len(annotations) > 0 {
		if data, jsonErr := json.Marshal(annotations); jsonErr == nil {
			db.Model(&logentry.LogEntry{}).Where("id = ?", entry.ID).
				Update("annotations_json", string(data))
		}
	}

	session.Saved++
}

func toEntry(rec parser.Record, session *Session) logentry.LogEntry {
	return logentry.LogEntry{
		Timestamp:         rec.Timestamp,
		Level:             strings.ToUpper(rec.Level),
		Section:           rec.Section,
		Module:            rec.Module,
		Message:           rec.Message,
		ReqID:             rec.ReqID,
		TransactionID:     rec.TransactionID,
		RPC:               rec.RPC,
		ResourceType:      rec.ResourceType,
		DataSourceType:    rec.DataSourceType,
		HTTPOperationType: rec.HTTPOperationType,
		StatusCode:        rec.StatusCode,
		FileName:          session.FileName,
		ImportID:          session.ImportID,
		Unread:            true,
		RawJSON:           rec.RawJSON,
		AttrsJSON:         marshalAttrs(rec.Attributes),
	}
}

func marshalAttrs(attrs map[string]interface{}) string {
	if len(attrs) == 0 {
		return ""
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return ""
	}
	return string(data)
}

func toEvent(rec parser.Record, entry logentry.LogEntry) plugin.Event {
	attrs := map[string]string{}
	for key, value := range rec.Attributes {
		attrs[key] = fmt.Sprint(value)
	}

	return plugin.Event{
		ID:        strconv.FormatUint(entry.ID, 10),
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
		Level:     entry.Level,
		Section:   entry.Section,
		Message:   entry.Message,
		Attrs:     attrs,
	}
}
