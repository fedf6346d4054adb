package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wiredraw/wiredraw/internal/db"
	"github.com/wiredraw/wiredraw/internal/document"
	"github.com/wiredraw/wiredraw/internal/typeid"
)

var (
	ErrNotFound          = errors.New("project not found")
	ErrForbidden         = errors.New("forbidden")
	ErrNotMember         = errors.New("not a project member")
	ErrUserNotFound      = errors.New("user not found")
	ErrCannotRemoveOwner = errors.New("cannot remove project owner")
	ErrInvalidBoard      = errors.New("invalid board size")
)

// Store is the subset of db.Queries the service needs.
type Store interface {
	CreateProject(ctx context.Context, arg db.CreateProjectParams) (db.Project, error)
	GetProject(ctx context.Context, id string) (db.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]db.Project, error)
	DeleteProject(ctx context.Context, id string) error
	AddProjectMember(ctx context.Context, arg db.AddProjectMemberParams) error
	GetProjectMember(ctx context.Context, arg db.GetProjectMemberParams) (db.ProjectMember, error)
	ListProjectMembers(ctx context.Context, projectID string) ([]db.ProjectMemberRow, error)
	RemoveProjectMember(ctx context.Context, arg db.RemoveProjectMemberParams) error
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	CreateSnapshot(ctx context.Context, arg db.CreateSnapshotParams) (db.Snapshot, error)
	GetLatestSnapshot(ctx context.Context, projectID string) (db.Snapshot, error)
}

type Service struct {
	store    Store
	defaults document.Board
}

// NewService creates a project service. defaults sizes boards created
// without explicit dimensions.
func NewService(store Store, defaults document.Board) *Service {
	return &Service{store: store, defaults: defaults}
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwnerID     string `json:"ownerId"`
	BoardWidth  int    `json:"boardWidth"`
	BoardHeight int    `json:"boardHeight"`
	GridSize    int    `json:"gridSize"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// CreateParams names a new project. Zero sizes take the service defaults.
type CreateParams struct {
	Name        string
	OwnerID     string
	BoardWidth  int
	BoardHeight int
	GridSize    int
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Project, error) {
	board := s.defaults
	if p.BoardWidth != 0 {
		board.Width = float64(p.BoardWidth)
	}
	if p.BoardHeight != 0 {
		board.Height = float64(p.BoardHeight)
	}
	if p.GridSize != 0 {
		board.GridSize = float64(p.GridSize)
	}
	if board.Width <= 0 || board.Height <= 0 || board.GridSize <= 0 {
		return nil, fmt.Errorf("%w: %vx%v grid %v", ErrInvalidBoard, board.Width, board.Height, board.GridSize)
	}

	projectID := typeid.NewProjectID()

	dbProj, err := s.store.CreateProject(ctx, db.CreateProjectParams{
		ID:          projectID,
		Name:        p.Name,
		OwnerID:     p.OwnerID,
		BoardWidth:  int32(board.Width),
		BoardHeight: int32(board.Height),
		GridSize:    int32(board.GridSize),
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	err = s.store.AddProjectMember(ctx, db.AddProjectMemberParams{
		ProjectID: projectID,
		UserID:    p.OwnerID,
		Role:      db.ProjectRoleOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	// Version 1 is the empty board.
	emptyDoc := document.NewEmptyDocument(typeid.NewLayerID(), board.Width, board.Height, board.GridSize)
	if board.Background != "" {
		emptyDoc.Board.Background = board.Background
	}
	docJSON, err := document.Encode(emptyDoc)
	if err != nil {
		return nil, err
	}

	_, err = s.store.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ID:        typeid.NewSnapshotID(),
		ProjectID: projectID,
		Version:   1,
		Document:  docJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return dbProjectToProject(dbProj), nil
}

func (s *Service) Get(ctx context.Context, projectID, userID string) (*Project, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	dbProj, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return dbProjectToProject(dbProj), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	dbProjects, err := s.store.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, len(dbProjects))
	for i, p := range dbProjects {
		projects[i] = *dbProjectToProject(p)
	}
	return projects, nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.requireOwner(ctx, projectID, userID); err != nil {
		return err
	}
	return s.store.DeleteProject(ctx, projectID)
}

func (s *Service) InviteByEmail(ctx context.Context, projectID, ownerID, inviteeEmail string) error {
	if _, err := s.requireOwner(ctx, projectID, ownerID); err != nil {
		return err
	}

	invitee, err := s.store.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	return s.store.AddProjectMember(ctx, db.AddProjectMemberParams{
		ProjectID: projectID,
		UserID:    invitee.ID,
		Role:      db.ProjectRoleEditor,
	})
}

func (s *Service) ListMembers(ctx context.Context, projectID, userID string) ([]Member, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	dbMembers, err := s.store.ListProjectMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(dbMembers))
	for i, m := range dbMembers {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, projectID, ownerID, targetUserID string) error {
	if _, err := s.requireOwner(ctx, projectID, ownerID); err != nil {
		return err
	}
	if targetUserID == ownerID {
		return ErrCannotRemoveOwner
	}
	return s.store.RemoveProjectMember(ctx, db.RemoveProjectMemberParams{
		ProjectID: projectID,
		UserID:    targetUserID,
	})
}

func (s *Service) GetLatestSnapshot(ctx context.Context, projectID, userID string) (json.RawMessage, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	snap, err := s.store.GetLatestSnapshot(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap.Document, nil
}

// CheckMembership returns ErrNotMember unless userID belongs to projectID.
func (s *Service) CheckMembership(ctx context.Context, projectID, userID string) error {
	_, err := s.store.GetProjectMember(ctx, db.GetProjectMemberParams{
		ProjectID: projectID,
		UserID:    userID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

func (s *Service) getProject(ctx context.Context, projectID string) (db.Project, error) {
	dbProj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Project{}, ErrNotFound
		}
		return db.Project{}, fmt.Errorf("get project: %w", err)
	}
	return dbProj, nil
}

func (s *Service) requireOwner(ctx context.Context, projectID, userID string) (db.Project, error) {
	dbProj, err := s.getProject(ctx, projectID)
	if err != nil {
		return dbProj, err
	}
	if dbProj.OwnerID != userID {
		return dbProj, ErrForbidden
	}
	return dbProj, nil
}

func dbProjectToProject(p db.Project) *Project {
	return &Project{
		ID:          p.ID,
		Name:        p.Name,
		OwnerID:     p.OwnerID,
		BoardWidth:  int(p.BoardWidth),
		BoardHeight: int(p.BoardHeight),
		GridSize:    int(p.GridSize),
		CreatedAt:   p.CreatedAt.Time.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Time.Format(time.RFC3339),
	}
}
