package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// --- users ---

const createUser = `INSERT INTO users (id, email, password, display_name)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password, display_name, created_at`

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.ID, arg.Email, arg.Password, arg.DisplayName)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Password, &i.DisplayName, &i.CreatedAt)
	return i, err
}

const getUserByEmail = `SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Password, &i.DisplayName, &i.CreatedAt)
	return i, err
}

const getUserByID = `SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Password, &i.DisplayName, &i.CreatedAt)
	return i, err
}

// --- projects ---

const projectColumns = `id, name, owner_id, board_width, board_height, grid_size, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var i Project
	err := row.Scan(&i.ID, &i.Name, &i.OwnerID, &i.BoardWidth, &i.BoardHeight, &i.GridSize, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createProject = `INSERT INTO projects (id, name, owner_id, board_width, board_height, grid_size)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + projectColumns

type CreateProjectParams struct {
	ID          string
	Name        string
	OwnerID     string
	BoardWidth  int32
	BoardHeight int32
	GridSize    int32
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error) {
	return scanProject(q.db.QueryRow(ctx, createProject,
		arg.ID, arg.Name, arg.OwnerID, arg.BoardWidth, arg.BoardHeight, arg.GridSize))
}

const getProject = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

func (q *Queries) GetProject(ctx context.Context, id string) (Project, error) {
	return scanProject(q.db.QueryRow(ctx, getProject, id))
}

const listProjectsForUser = `SELECT p.id, p.name, p.owner_id, p.board_width, p.board_height, p.grid_size, p.created_at, p.updated_at
FROM projects p
JOIN project_members m ON m.project_id = p.id
WHERE m.user_id = $1
ORDER BY p.updated_at DESC`

func (q *Queries) ListProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := q.db.Query(ctx, listProjectsForUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		i, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const touchProject = `UPDATE projects SET updated_at = now() WHERE id = $1`

func (q *Queries) TouchProject(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, touchProject, id)
	return err
}

const deleteProject = `DELETE FROM projects WHERE id = $1`

func (q *Queries) DeleteProject(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteProject, id)
	return err
}

// --- members ---

const addProjectMember = `INSERT INTO project_members (project_id, user_id, role)
VALUES ($1, $2, $3::project_role)
ON CONFLICT (project_id, user_id) DO NOTHING`

type AddProjectMemberParams struct {
	ProjectID string
	UserID    string
	Role      ProjectRole
}

func (q *Queries) AddProjectMember(ctx context.Context, arg AddProjectMemberParams) error {
	_, err := q.db.Exec(ctx, addProjectMember, arg.ProjectID, arg.UserID, string(arg.Role))
	return err
}

const getProjectMember = `SELECT project_id, user_id, role::text, created_at
FROM project_members WHERE project_id = $1 AND user_id = $2`

type GetProjectMemberParams struct {
	ProjectID string
	UserID    string
}

func (q *Queries) GetProjectMember(ctx context.Context, arg GetProjectMemberParams) (ProjectMember, error) {
	row := q.db.QueryRow(ctx, getProjectMember, arg.ProjectID, arg.UserID)
	var i ProjectMember
	var role string
	err := row.Scan(&i.ProjectID, &i.UserID, &role, &i.CreatedAt)
	i.Role = ProjectRole(role)
	return i, err
}

const listProjectMembers = `SELECT m.user_id, m.role::text, u.display_name, u.email
FROM project_members m
JOIN users u ON u.id = m.user_id
WHERE m.project_id = $1
ORDER BY m.created_at`

func (q *Queries) ListProjectMembers(ctx context.Context, projectID string) ([]ProjectMemberRow, error) {
	rows, err := q.db.Query(ctx, listProjectMembers, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProjectMemberRow
	for rows.Next() {
		var i ProjectMemberRow
		var role string
		if err := rows.Scan(&i.UserID, &role, &i.DisplayName, &i.Email); err != nil {
			return nil, err
		}
		i.Role = ProjectRole(role)
		items = append(items, i)
	}
	return items, rows.Err()
}

const removeProjectMember = `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`

type RemoveProjectMemberParams struct {
	ProjectID string
	UserID    string
}

func (q *Queries) RemoveProjectMember(ctx context.Context, arg RemoveProjectMemberParams) error {
	_, err := q.db.Exec(ctx, removeProjectMember, arg.ProjectID, arg.UserID)
	return err
}

// --- snapshots ---

const createSnapshot = `INSERT INTO snapshots (id, project_id, version, document)
VALUES ($1, $2, $3, $4)
RETURNING id, project_id, version, document, created_at`

type CreateSnapshotParams struct {
	ID        string
	ProjectID string
	Version   int32
	Document  []byte
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	row := q.db.QueryRow(ctx, createSnapshot, arg.ID, arg.ProjectID, arg.Version, arg.Document)
	var i Snapshot
	err := row.Scan(&i.ID, &i.ProjectID, &i.Version, &i.Document, &i.CreatedAt)
	return i, err
}

const getLatestSnapshot = `SELECT id, project_id, version, document, created_at
FROM snapshots WHERE project_id = $1
ORDER BY version DESC LIMIT 1`

func (q *Queries) GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	row := q.db.QueryRow(ctx, getLatestSnapshot, projectID)
	var i Snapshot
	err := row.Scan(&i.ID, &i.ProjectID, &i.Version, &i.Document, &i.CreatedAt)
	return i, err
}

const appendSnapshot = `INSERT INTO snapshots (id, project_id, version, document)
SELECT $1::text, $2::text, COALESCE(MAX(version), 0) + 1, $3::jsonb
FROM snapshots WHERE project_id = $2
RETURNING id, project_id, version, document, created_at`

type AppendSnapshotParams struct {
	ID        string
	ProjectID string
	Document  []byte
}

// AppendSnapshot stores a document as the project's next version.
func (q *Queries) AppendSnapshot(ctx context.Context, arg AppendSnapshotParams) (Snapshot, error) {
	row := q.db.QueryRow(ctx, appendSnapshot, arg.ID, arg.ProjectID, arg.Document)
	var i Snapshot
	err := row.Scan(&i.ID, &i.ProjectID, &i.Version, &i.Document, &i.CreatedAt)
	return i, err
}
