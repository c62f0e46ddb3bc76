package models

// SessionType maps a short session-type code from the scheduling feed to its
// display label.
type SessionType struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Module is a course organizational unit.
type Module struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Label string `json:"label" db:"label"`
}

// Ue is a course-group organizational unit.
type Ue struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Label string `json:"label" db:"label"`
}

// Role is one of the fixed lecturer roles.
type Role struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// DefaultRoles is the fixed role table the reconciliation engine keeps in
// sync. Ids are part of the external contract and never change.
var DefaultRoles = []Role{
	{ID: -1, Name: "Autre"},
	{ID: 0, Name: "Professeur"},
	{ID: 1, Name: "Doctorant"},
	{ID: 2, Name: "Vacataire"},
}

// ManagedBy links a user to a module they manage. Managers may register and
// unregister other users on the module's sessions.
type ManagedBy struct {
	ModuleID     int    `json:"module_id" db:"module_id"`
	UserUsername string `json:"user_username" db:"user_username"`
}

// Favorite marks a module a user follows.
type Favorite struct {
	ModuleID     int    `json:"module_id" db:"module_id"`
	UserUsername string `json:"user_username" db:"user_username"`
}
