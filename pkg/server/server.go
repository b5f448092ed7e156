// Package server provides the Echo HTTP API for song structure analysis.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nzoschke/songlab/pkg/analysis"
	"github.com/nzoschke/songlab/pkg/features"
	"github.com/nzoschke/songlab/pkg/store"
	"github.com/nzoschke/songlab/pkg/structure"
	"go.uber.org/zap"
)

// maxBody bounds feature document uploads.
const maxBody = "64M"

// Store persists compiled analyses.
type Store interface {
	Save(ctx context.Context, file, digest string, meta *structure.EnhancedMetadata) (store.Record, bool, error)
	Get(ctx context.Context, id string) (store.Record, error)
	FindByDigest(ctx context.Context, digest string) (store.Record, error)
	List(ctx context.Context, limit int) ([]store.Record, error)
}

// LibraryEntry represents a feature file in the library directory.
type LibraryEntry struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	HasStructure  bool   `json:"has_structure"`
	StructurePath string `json:"structure_path,omitempty"`
}

// Server serves the analysis API.
type Server struct {
	e          *echo.Echo
	analyzer   *analysis.Analyzer
	store      Store
	libraryDir string
	log        *zap.Logger
}

// New creates a Server and registers its routes.
func New(an *analysis.Analyzer, st Store, libraryDir string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		e:          echo.New(),
		analyzer:   an,
		store:      st,
		libraryDir: libraryDir,
		log:        log,
	}
	s.e.HideBanner = true
	s.e.HidePort = true

	// Middleware
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				s.log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.log.Info("request", fields...)
			return nil
		},
	}))
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.CORS())
	s.e.Use(middleware.BodyLimit(maxBody))

	// Routes
	s.e.GET("/health", s.health)
	s.e.POST("/api/analyze", s.analyze)
	s.e.POST("/api/analyses", s.createAnalysis)
	s.e.GET("/api/analyses", s.listAnalyses)
	s.e.GET("/api/analyses/:id", s.getAnalysis)
	s.e.GET("/api/library", s.listLibrary)
	s.e.GET("/api/library/*", s.serveLibrary)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// decodeTrack reads a feature document from the request body.
func decodeTrack(c echo.Context) (*features.Track, error) {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "read body")
	}
	t, err := features.Decode(data)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return t, nil
}

// analyze compiles a feature document without storing it.
func (s *Server) analyze(c echo.Context) error {
	t, err := decodeTrack(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.analyzer.Engine().Compile(t))
}

// createAnalysis compiles and stores a feature document. Identical documents
// return the stored analysis.
func (s *Server) createAnalysis(c echo.Context) error {
	ctx := c.Request().Context()
	t, err := decodeTrack(c)
	if err != nil {
		return err
	}

	digest, err := store.Digest(t)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	rec, err := s.store.FindByDigest(ctx, digest)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, rec)
	case !errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	rec, created, err := s.store.Save(ctx, c.QueryParam("file"), digest, s.analyzer.Engine().Compile(t))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !created {
		return c.JSON(http.StatusOK, rec)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) listAnalyses(c echo.Context) error {
	limit := 0
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	recs, err := s.store.List(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, recs)
}

func (s *Server) getAnalysis(c echo.Context) error {
	rec, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

// listLibrary returns all feature files in the library directory.
func (s *Server) listLibrary(c echo.Context) error {
	entries := []LibraryEntry{}

	err := filepath.WalkDir(s.libraryDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !analysis.IsFeatureFile(path) {
			return nil
		}

		rel, err := filepath.Rel(s.libraryDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		entry := LibraryEntry{
			Name: strings.TrimSuffix(filepath.Base(path), analysis.FeaturesSuffix),
			Path: rel,
		}

		// Check if the structure sidecar exists
		if _, err := os.Stat(analysis.SidecarPath(path)); err == nil {
			entry.HasStructure = true
			entry.StructurePath = analysis.SidecarPath(rel)
		}

		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, entries)
}

// libraryKind is what the library route may serve for a file.
type libraryKind int

const (
	kindForbidden libraryKind = iota
	kindDocument
	kindAudio
)

var audioExts = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".wav": true,
	".flac": true, ".ogg": true, ".aiff": true,
}

// classify allows feature documents, structure sidecars and audio files.
func classify(name string) libraryKind {
	lower := strings.ToLower(name)
	switch {
	case analysis.IsFeatureFile(lower), strings.HasSuffix(lower, analysis.StructureSuffix):
		return kindDocument
	case audioExts[filepath.Ext(lower)]:
		return kindAudio
	default:
		return kindForbidden
	}
}

// resolve maps an escaped request path to a servable file in the library.
func (s *Server) resolve(raw string) (string, libraryKind, error) {
	rel, err := url.PathUnescape(raw)
	if err != nil {
		return "", kindForbidden, echo.NewHTTPError(http.StatusBadRequest, "invalid path encoding")
	}
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", kindForbidden, echo.NewHTTPError(http.StatusForbidden, "invalid path")
	}

	path := filepath.Join(s.libraryDir, rel)
	info, err := os.Stat(path)
	if err != nil {
		return "", kindForbidden, echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	if info.IsDir() {
		return "", kindForbidden, echo.NewHTTPError(http.StatusForbidden, "cannot serve directory")
	}

	kind := classify(rel)
	if kind == kindForbidden {
		return "", kind, echo.NewHTTPError(http.StatusForbidden, "file type not allowed")
	}
	return path, kind, nil
}

// serveLibrary serves feature, structure and audio files from the library directory.
func (s *Server) serveLibrary(c echo.Context) error {
	path, kind, err := s.resolve(c.Param("*"))
	if err != nil {
		return err
	}
	if kind == kindAudio {
		return c.File(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !json.Valid(data) {
		return echo.NewHTTPError(http.StatusInternalServerError, "invalid JSON")
	}
	return c.JSONBlob(http.StatusOK, data)
}
