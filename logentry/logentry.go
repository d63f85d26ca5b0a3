package logentry

import (
	"time"
)

// LogEntry is the canonical persisted form of one parsed Terraform log line.
type LogEntry struct {
	ID                uint64    `json:"id" gorm:"primary_key"`
	Timestamp         time.Time `json:"timestamp" gorm:"column:ts"`
	Level             string    `json:"level" gorm:"column:level;size:16"`
	Section           string    `json:"section" gorm:"column:section;size:16"`
	Module            string    `json:"module,omitempty" gorm:"column:module;size:255"`
	Message           string    `json:"message" gorm:"column:message;type:text"`
	ReqID             string    `json:"req_id,omitempty" gorm:"column:req_id;size:128;index"`
	TransactionID     string    `json:"trans_id,omitempty" gorm:"column:trans_id;size:128"`
	RPC               string    `json:"rpc,omitempty" gorm:"column:rpc;size:255"`
	ResourceType      string    `json:"resource_type,omitempty" gorm:"column:resource_type;size:255"`
	DataSourceType    string    `json:"data_source_type,omitempty" gorm:"column:data_source_type;size:255"`
	HTTPOperationType string    `json:"http_op_type,omitempty" gorm:"column:http_op_type;size:32"`
	StatusCode        *int      `json:"status_code,omitempty" gorm:"column:status_code"`
	FileName          string    `json:"file_name,omitempty" gorm:"column:file_name;size:512"`
	ImportID          string    `json:"import_id,omitempty" gorm:"column:import_id;size:64;index"`
	Unread            bool      `json:"unread" gorm:"column:unread"`
	RawJSON           string    `json:"raw_json,omitempty" gorm:"column:raw_json;type:text"`
	AttrsJSON         string    `json:"attrs_json,omitempty" gorm:"column:attrs_json;type:text"`
	AnnotationsJSON   string    `json:"annotations_json,omitempty" gorm:"column:annotations_json;type:text"`
	Bodies            []LogBody `json:"bodies,omitempty" gorm:"foreignKey:LogID"`
}

func (LogEntry) TableName() string {
	return "tf_log_entries"
}

// LogBody is a request/response/error payload extracted from inside a log entry.
type LogBody struct {
	ID       uint64 `json:"id" gorm:"primary_key"`
	LogID    uint64 `json:"log_id" gorm:"column:log_id;index"`
	Kind     string `json:"kind" gorm:"column:kind;size:32"`
	BodyJSON string `json:"body_json" gorm:"column:body_json;type:text"`
}

func (LogBody) TableName() string {
	return "tf_log_bodies"
}

// ImportSummary describes one completed import as seen in the database.
type ImportSummary struct {
	ImportID       string     `json:"import_id"`
	FileName       string     `json:"file_name"`
	Total          int64      `json:"total"`
	FirstTimestamp *time.Time `json:"first_timestamp,omitempty"`
	LastTimestamp  *time.Time `json:"last_timestamp,omitempty"`
}
