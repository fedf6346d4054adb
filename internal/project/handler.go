package project

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wiredraw/wiredraw/internal/auth"
	"github.com/wiredraw/wiredraw/internal/document"
	"github.com/wiredraw/wiredraw/internal/engine"
)

// Handler serves the project REST API. Every route expects an authenticated
// user in the request context.
type Handler struct {
	service  *Service
	settings engine.Settings
	resolver engine.AssetResolver
}

// NewHandler creates a handler. settings and resolver configure the editor
// used to build board previews.
func NewHandler(service *Service, settings engine.Settings, resolver engine.AssetResolver) *Handler {
	return &Handler{service: service, settings: settings, resolver: resolver}
}

// Register mounts the project routes on an authenticated subrouter.
func (h *Handler) Register(api *mux.Router) {
	api.HandleFunc("/projects", h.List).Methods("GET")
	api.HandleFunc("/projects", h.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", h.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", h.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/invite", h.Invite).Methods("POST")
	api.HandleFunc("/projects/{projectId}/members", h.ListMembers).Methods("GET")
	api.HandleFunc("/projects/{projectId}/members/{userId}", h.RemoveMember).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/snapshots/latest", h.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/projects/{projectId}/preview", h.Preview).Methods("GET")
}

type createRequest struct {
	Name        string `json:"name"`
	BoardWidth  int    `json:"boardWidth"`
	BoardHeight int    `json:"boardHeight"`
	GridSize    int    `json:"gridSize"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

// previewResponse is the board as the editor would draw it with nothing
// selected.
type previewResponse struct {
	Board    document.Board       `json:"board"`
	Nodes    int                  `json:"nodes"`
	Commands []engine.DrawCommand `json:"commands"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p, err := h.service.Create(r.Context(), CreateParams{
		Name:        req.Name,
		OwnerID:     auth.UserIDFromContext(r.Context()),
		BoardWidth:  req.BoardWidth,
		BoardHeight: req.BoardHeight,
		GridSize:    req.GridSize,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, projectID := identify(r)
	p, err := h.service.Get(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if projects == nil {
		projects = []Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, projectID := identify(r)
	if err := h.service.Delete(r.Context(), projectID, userID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, projectID := identify(r)
	var req inviteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := h.service.InviteByEmail(r.Context(), projectID, userID, req.Email); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "invited"})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, projectID := identify(r)
	members, err := h.service.ListMembers(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, projectID := identify(r)
	target := mux.Vars(r)["userId"]
	if err := h.service.RemoveMember(r.Context(), projectID, userID, target); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLatestSnapshot returns the stored document verbatim.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, projectID := identify(r)
	doc, err := h.service.GetLatestSnapshot(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// Preview loads the latest snapshot into a throwaway editor and returns its
// draw commands.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, projectID := identify(r)
	data, err := h.service.GetLatestSnapshot(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	doc, err := document.Decode(data)
	if err != nil {
		slog.Error("stored snapshot is invalid", "project", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "stored document is invalid")
		return
	}

	e := engine.NewEditor(h.settings, h.resolver)
	if err := e.LoadDocument(r.Context(), doc); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{
		Board:    doc.Board,
		Nodes:    doc.Count(),
		Commands: e.Render(),
	})
}

func identify(r *http.Request) (userID, projectID string) {
	return auth.UserIDFromContext(r.Context()), mux.Vars(r)["projectId"]
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrNotMember):
		writeError(w, http.StatusForbidden, "not a project member")
	case errors.Is(err, ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ErrCannotRemoveOwner), errors.Is(err, ErrInvalidBoard):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
