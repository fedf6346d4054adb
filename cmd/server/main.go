package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/wiredraw/wiredraw/internal/asset"
	"github.com/wiredraw/wiredraw/internal/auth"
	"github.com/wiredraw/wiredraw/internal/collab"
	"github.com/wiredraw/wiredraw/internal/config"
	"github.com/wiredraw/wiredraw/internal/db"
	"github.com/wiredraw/wiredraw/internal/document"
	mw "github.com/wiredraw/wiredraw/internal/middleware"
	"github.com/wiredraw/wiredraw/internal/project"
	"github.com/wiredraw/wiredraw/internal/typeid"
)

// The playground board is open to anonymous users and never persisted.
const playgroundProjectID = "proj_playground"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := db.New(pool)

	assets, err := asset.NewStore(cfg.AssetDir)
	if err != nil {
		slog.Error("open asset store", "error", err)
		os.Exit(1)
	}
	assetHandler := asset.NewHandler(assets)

	settings := cfg.Editor.Settings()

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	projectService := project.NewService(queries, document.Board{
		Width:    cfg.Editor.BoardWidth,
		Height:   cfg.Editor.BoardHeight,
		GridSize: cfg.Editor.GridSize,
	})
	projectHandler := project.NewHandler(projectService, settings, assets)

	hub := collab.NewHub(collab.HubConfig{
		Load:         documentLoader(queries),
		Save:         documentSaver(queries),
		Settings:     settings,
		Resolver:     assets,
		SaveInterval: time.Duration(cfg.SaveInterval) * time.Second,
	})

	origins := mw.ParseOrigins(cfg.AllowedOrigins)

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))

	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","rooms":%d}`, hub.RoomCount())
	}).Methods("GET")

	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	projectHandler.Register(api)

	ws := &wsHandler{
		hub:      hub,
		auth:     authService,
		projects: projectService,
		accept:   &websocket.AcceptOptions{OriginPatterns: originPatterns(origins)},
	}
	r.Handle("/ws/project/{projectId}", ws)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Rooms save before connections are torn down.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func documentLoader(queries *db.Queries) collab.Loader {
	return func(ctx context.Context, projectID string) (*document.Document, error) {
		if projectID == playgroundProjectID {
			return document.NewSampleDocument(), nil
		}
		snap, err := queries.GetLatestSnapshot(ctx, projectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				p, perr := queries.GetProject(ctx, projectID)
				if perr != nil {
					return nil, fmt.Errorf("get project: %w", perr)
				}
				return document.NewEmptyDocument(typeid.NewLayerID(),
					float64(p.BoardWidth), float64(p.BoardHeight), float64(p.GridSize)), nil
			}
			return nil, fmt.Errorf("get latest snapshot: %w", err)
		}
		return document.Decode(snap.Document)
	}
}

func documentSaver(queries *db.Queries) collab.Saver {
	return func(ctx context.Context, projectID string, doc []byte) error {
		if projectID == playgroundProjectID {
			return nil
		}
		snap, err := queries.AppendSnapshot(ctx, db.AppendSnapshotParams{
			ID:        typeid.NewSnapshotID(),
			ProjectID: projectID,
			Document:  doc,
		})
		if err != nil {
			return fmt.Errorf("append snapshot: %w", err)
		}
		if err := queries.TouchProject(ctx, projectID); err != nil {
			return fmt.Errorf("touch project: %w", err)
		}
		slog.Debug("snapshot stored", "project", projectID, "version", snap.Version)
		return nil
	}
}

// originPatterns strips schemes; websocket.Accept matches hosts only.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}

type wsHandler struct {
	hub      *collab.Hub
	auth     *auth.Service
	projects *project.Service
	accept   *websocket.AcceptOptions
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	var userID, displayName string
	if projectID == playgroundProjectID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		token, ok := auth.TokenFromRequest(r)
		if !ok {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		var err error
		userID, err = h.auth.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if err := h.projects.CheckMembership(r.Context(), projectID, userID); err != nil {
			if errors.Is(err, project.ErrNotMember) {
				http.Error(w, "not a project member", http.StatusForbidden)
				return
			}
			slog.Error("check membership", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		user, err := h.auth.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(h.hub, conn, userID, displayName, projectID, uuid.New().String())
	if err := h.hub.Register(client); err != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	client.Serve(r.Context())
}
