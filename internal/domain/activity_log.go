package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Activity actions
const (
	ActionAgentDispatch = "agent.dispatch"
	ActionAgentGroup    = "agent.group"
	ActionAgentPing     = "agent.ping"
	ActionImageAcquire  = "image.acquire"
	ActionImageRepair   = "image.repair"
	ActionGenerate      = "article.generate"
	ActionRiskAssess    = "article.assess"
	ActionPublish       = "article.publish"
	ActionUnpublish     = "article.unpublish"
	ActionModerate      = "comment.moderate"
)

// Metadata 자유 형식 key/value, JSON 컬럼으로 저장
type Metadata map[string]interface{}

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("metadata: unsupported scan type")
	}
	out := Metadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// ActivityLog is an append-only audit entry for pipeline actions
type ActivityLog struct {
	ID           string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Action       string    `gorm:"column:action;size:64;index" json:"action"`
	Success      bool      `gorm:"column:success" json:"success"`
	ArticleID    *int64    `gorm:"column:article_id;index" json:"article_id,omitempty"`
	Metadata     Metadata  `gorm:"column:metadata;type:text" json:"metadata"`
	ErrorMessage string    `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;index" json:"created_at"`
}

// TableName returns the table name
func (ActivityLog) TableName() string {
	return "activity_logs"
}
