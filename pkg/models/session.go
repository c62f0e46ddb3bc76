package models

import "time"

// Session is one scheduled occurrence of a course module. Rows are owned by
// the reconciliation engine: interactive users never create or delete them.
type Session struct {
	ID        int64     `json:"id" db:"id"`
	ModuleID  int       `json:"module_id" db:"module_id"`
	UeID      int       `json:"ue_id" db:"ue_id"`
	GroupName string    `json:"group_name" db:"group_name"`
	Type      string    `json:"type" db:"type"`
	Salle     string    `json:"salle" db:"salle"`
	DateStart time.Time `json:"date_start" db:"date_start"`
	DateEnd   time.Time `json:"date_end" db:"date_end"`
}

// Duration returns the scheduled length of the session.
func (s *Session) Duration() time.Duration {
	return s.DateEnd.Sub(s.DateStart)
}

// SessionDetail is a session row joined with its module and UE names, the
// shape the reconciliation diff and the listing endpoints work with.
type SessionDetail struct {
	Session
	ModuleName string `json:"module_name" db:"module_name"`
	UeName     string `json:"ue_name" db:"ue_name"`
	TypeName   string `json:"type_name" db:"type_name"`
}

// LecturedBy links a lecturer to a session. Synapse records whether the link
// was asserted by the external feed (true) or created interactively (false).
// Only the reconciliation engine ever sets it to true.
type LecturedBy struct {
	SessionID    int64  `json:"session_id" db:"session_id"`
	UserUsername string `json:"user_username" db:"user_username"`
	Synapse      bool   `json:"synapse" db:"synapse"`
}

// SessionListResponse is the response for listing sessions.
type SessionListResponse struct {
	Items      []SessionDetail `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

// SessionListFilter holds the optional filters of the session listing.
type SessionListFilter struct {
	Types     []string
	ModuleIDs []int
	UeIDs     []int
	DateMin   *time.Time
	DateMax   *time.Time
}
