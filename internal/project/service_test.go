package project

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/wiredraw/wiredraw/internal/auth"
	"github.com/wiredraw/wiredraw/internal/db"
	"github.com/wiredraw/wiredraw/internal/document"
	"github.com/wiredraw/wiredraw/internal/engine"
)

type memStore struct {
	projects  map[string]db.Project
	members   map[string]map[string]db.ProjectRole
	users     map[string]db.User // by email
	snapshots map[string][]db.Snapshot
}

func newMemStore() *memStore {
	return &memStore{
		projects:  map[string]db.Project{},
		members:   map[string]map[string]db.ProjectRole{},
		users:     map[string]db.User{},
		snapshots: map[string][]db.Snapshot{},
	}
}

func (m *memStore) CreateProject(_ context.Context, arg db.CreateProjectParams) (db.Project, error) {
	p := db.Project{ID: arg.ID, Name: arg.Name, OwnerID: arg.OwnerID, BoardWidth: arg.BoardWidth, BoardHeight: arg.BoardHeight, GridSize: arg.GridSize}
	m.projects[p.ID] = p
	return p, nil
}

func (m *memStore) GetProject(_ context.Context, id string) (db.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return db.Project{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListProjectsForUser(_ context.Context, userID string) ([]db.Project, error) {
	var out []db.Project
	for id, members := range m.members {
		if _, ok := members[userID]; ok {
			out = append(out, m.projects[id])
		}
	}
	return out, nil
}

func (m *memStore) DeleteProject(_ context.Context, id string) error {
	delete(m.projects, id)
	delete(m.members, id)
	return nil
}

func (m *memStore) AddProjectMember(_ context.Context, arg db.AddProjectMemberParams) error {
	if m.members[arg.ProjectID] == nil {
		m.members[arg.ProjectID] = map[string]db.ProjectRole{}
	}
	m.members[arg.ProjectID][arg.UserID] = arg.Role
	return nil
}

func (m *memStore) GetProjectMember(_ context.Context, arg db.GetProjectMemberParams) (db.ProjectMember, error) {
	role, ok := m.members[arg.ProjectID][arg.UserID]
	if !ok {
		return db.ProjectMember{}, pgx.ErrNoRows
	}
	return db.ProjectMember{ProjectID: arg.ProjectID, UserID: arg.UserID, Role: role}, nil
}

func (m *memStore) ListProjectMembers(_ context.Context, projectID string) ([]db.ProjectMemberRow, error) {
	var out []db.ProjectMemberRow
	for uid, role := range m.members[projectID] {
		out = append(out, db.ProjectMemberRow{UserID: uid, Role: role})
	}
	return out, nil
}

func (m *memStore) RemoveProjectMember(_ context.Context, arg db.RemoveProjectMemberParams) error {
	delete(m.members[arg.ProjectID], arg.UserID)
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	u, ok := m.users[email]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memStore) CreateSnapshot(_ context.Context, arg db.CreateSnapshotParams) (db.Snapshot, error) {
	s := db.Snapshot{ID: arg.ID, ProjectID: arg.ProjectID, Version: arg.Version, Document: arg.Document}
	m.snapshots[arg.ProjectID] = append(m.snapshots[arg.ProjectID], s)
	return s, nil
}

func (m *memStore) GetLatestSnapshot(_ context.Context, projectID string) (db.Snapshot, error) {
	snaps := m.snapshots[projectID]
	if len(snaps) == 0 {
		return db.Snapshot{}, pgx.ErrNoRows
	}
	return snaps[len(snaps)-1], nil
}

var defaultBoard = document.Board{Width: 1280, Height: 720, GridSize: 20}

func TestCreateSeedsEmptyBoard(t *testing.T) {
	store := newMemStore()
	s := NewService(store, defaultBoard)
	ctx := context.Background()

	p, err := s.Create(ctx, CreateParams{Name: "amp", OwnerID: "user_a", GridSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if p.BoardWidth != 1280 || p.GridSize != 10 {
		t.Errorf("project = %+v", p)
	}

	raw, err := s.GetLatestSnapshot(ctx, p.ID, "user_a")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := document.Decode(raw)
	if err != nil {
		t.Fatalf("seeded snapshot does not decode: %v", err)
	}
	if doc.Count() != 0 || doc.Board.GridSize != 10 || doc.Board.Width != 1280 {
		t.Errorf("seeded board = %+v with %d nodes", doc.Board, doc.Count())
	}

	if _, err := s.GetLatestSnapshot(ctx, p.ID, "user_b"); !errors.Is(err, ErrNotMember) {
		t.Errorf("outsider error = %v, want ErrNotMember", err)
	}
	if _, err := s.Create(ctx, CreateParams{Name: "bad", OwnerID: "user_a", BoardWidth: -5}); !errors.Is(err, ErrInvalidBoard) {
		t.Errorf("negative board error = %v", err)
	}
}

func TestOwnerOnlyOperations(t *testing.T) {
	store := newMemStore()
	store.users["bob@example.com"] = db.User{ID: "user_b", Email: "bob@example.com"}
	s := NewService(store, defaultBoard)
	ctx := context.Background()

	p, err := s.Create(ctx, CreateParams{Name: "amp", OwnerID: "user_a"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.InviteByEmail(ctx, p.ID, "user_a", "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("invite unknown error = %v", err)
	}
	if err := s.InviteByEmail(ctx, p.ID, "user_a", "bob@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := s.CheckMembership(ctx, p.ID, "user_b"); err != nil {
		t.Errorf("bob not a member after invite: %v", err)
	}

	if err := s.Delete(ctx, p.ID, "user_b"); !errors.Is(err, ErrForbidden) {
		t.Errorf("editor delete error = %v, want ErrForbidden", err)
	}
	if err := s.RemoveMember(ctx, p.ID, "user_a", "user_a"); !errors.Is(err, ErrCannotRemoveOwner) {
		t.Errorf("remove owner error = %v", err)
	}
	if err := s.RemoveMember(ctx, p.ID, "user_a", "user_b"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, p.ID, "user_a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, p.ID, "user_a"); !errors.Is(err, ErrNotMember) && !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}

func TestHandlerStatusMapping(t *testing.T) {
	store := newMemStore()
	s := NewService(store, defaultBoard)
	p, err := s.Create(context.Background(), CreateParams{Name: "amp", OwnerID: "user_a"})
	if err != nil {
		t.Fatal(err)
	}

	r := mux.NewRouter()
	NewHandler(s, engine.DefaultSettings(), nil).Register(r)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		user   string
		status int
	}{
		{"create", "POST", "/projects", `{"name":"second"}`, "user_a", http.StatusCreated},
		{"create without name", "POST", "/projects", `{}`, "user_a", http.StatusBadRequest},
		{"get as member", "GET", "/projects/" + p.ID, "", "user_a", http.StatusOK},
		{"get as outsider", "GET", "/projects/" + p.ID, "", "user_z", http.StatusForbidden},
		{"snapshot", "GET", "/projects/" + p.ID + "/snapshots/latest", "", "user_a", http.StatusOK},
		{"preview", "GET", "/projects/" + p.ID + "/preview", "", "user_a", http.StatusOK},
		{"preview as outsider", "GET", "/projects/" + p.ID + "/preview", "", "user_z", http.StatusForbidden},
		{"delete as outsider", "DELETE", "/projects/" + p.ID, "", "user_z", http.StatusForbidden},
		{"delete missing", "DELETE", "/projects/proj_missing", "", "user_a", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req = req.WithContext(auth.WithUserID(req.Context(), tt.user))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
		})
	}

	req := httptest.NewRequest("GET", "/projects", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "user_a"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var list []Project
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil || len(list) != 2 {
		t.Errorf("list = %v, %v", list, err)
	}
}

func TestPreview(t *testing.T) {
	s := NewService(newMemStore(), defaultBoard)
	p, err := s.Create(context.Background(), CreateParams{Name: "amp", OwnerID: "user_a"})
	if err != nil {
		t.Fatal(err)
	}
	r := mux.NewRouter()
	NewHandler(s, engine.DefaultSettings(), nil).Register(r)

	req := httptest.NewRequest("GET", "/projects/"+p.ID+"/preview", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "user_a"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var got previewResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Nodes != 0 || got.Board.Width != 1280 || got.Board.GridSize != 20 {
		t.Errorf("preview = %+v", got)
	}
	if len(got.Commands) != 1 || got.Commands[0].Op != "view" {
		t.Errorf("commands = %+v, want a single view op", got.Commands)
	}
}
