package reconcile

import "fmt"

// Result summarizes one reconciliation run.
type Result struct {
	New        int      `json:"new"`
	Modified   int      `json:"modified"`
	NotChanged int      `json:"not_changed"`
	Deleted    int      `json:"deleted"`
	Messages   []string `json:"messages"`

	// Session ids touched by the run, for event emission.
	AddedIDs   []int64 `json:"-"`
	UpdatedIDs []int64 `json:"-"`
	DeletedIDs []int64 `json:"-"`
}

// Summary renders the counts as a single human-readable line.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d new sessions, %d modified sessions, %d not changed sessions, %d deleted sessions",
		r.New, r.Modified, r.NotChanged, r.Deleted)
}
