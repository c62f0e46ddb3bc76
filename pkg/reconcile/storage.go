package reconcile

import (
	"context"
	"database/sql"

	"github.com/Ramsey-B/tutorlink/pkg/database"
	"github.com/Ramsey-B/tutorlink/pkg/models"
)

// TxStarter begins the transaction the whole reconciliation runs in. The
// store calls below join it through the returned context.
type TxStarter interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// RoleStore is the role access the engine needs.
type RoleStore interface {
	GetByName(ctx context.Context, name string) (*models.Role, error)
	Insert(ctx context.Context, role models.Role) error
	UpdateID(ctx context.Context, name string, id int) error
}

// SessionTypeStore is the session-type access the engine needs.
type SessionTypeStore interface {
	Get(ctx context.Context, id string) (*models.SessionType, error)
	Insert(ctx context.Context, sessionType models.SessionType) error
	UpdateName(ctx context.Context, id, name string) error
}

// ModuleStore is the module access the engine needs.
type ModuleStore interface {
	GetByName(ctx context.Context, name string) (*models.Module, error)
	Insert(ctx context.Context, name, label string) (int, error)
	UpdateLabel(ctx context.Context, id int, label string) error
}

// UeStore is the UE access the engine needs.
type UeStore interface {
	GetByName(ctx context.Context, name string) (*models.Ue, error)
	Insert(ctx context.Context, name, label string) (int, error)
	UpdateLabel(ctx context.Context, id int, label string) error
}

// UserStore is the user access the engine needs. Reconciliation only ever
// creates users; it never updates an existing profile.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Insert(ctx context.Context, user models.User) error
}

// SessionStore is the session access the engine needs.
type SessionStore interface {
	ListIDs(ctx context.Context) ([]int64, error)
	Get(ctx context.Context, id int64) (*models.SessionDetail, error)
	Insert(ctx context.Context, session models.Session) error
	Update(ctx context.Context, session models.Session) error
	Delete(ctx context.Context, id int64) error
}

// LecturerStore is the lectured-by access the engine needs.
type LecturerStore interface {
	Get(ctx context.Context, sessionID int64, username string) (*models.LecturedBy, error)
	Insert(ctx context.Context, link models.LecturedBy) error
	Confirm(ctx context.Context, sessionID int64, username string) error
}
