package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type ProjectRole string

const (
	ProjectRoleOwner  ProjectRole = "owner"
	ProjectRoleEditor ProjectRole = "editor"
)

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   pgtype.Timestamptz
}

type Project struct {
	ID          string
	Name        string
	OwnerID     string
	BoardWidth  int32
	BoardHeight int32
	GridSize    int32
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

type ProjectMember struct {
	ProjectID string
	UserID    string
	Role      ProjectRole
	CreatedAt pgtype.Timestamptz
}

// ProjectMemberRow is a member joined with the user's profile.
type ProjectMemberRow struct {
	UserID      string
	Role        ProjectRole
	DisplayName string
	Email       string
}

type Snapshot struct {
	ID        string
	ProjectID string
	Version   int32
	Document  []byte
	CreatedAt pgtype.Timestamptz
}
