package web

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"

	"love-piece/internal/catalog"
	"love-piece/internal/composer"
	"love-piece/internal/logging"
)

// Generator is the composer capability behind the generation endpoint.
type Generator interface {
	Generate(ctx context.Context, req composer.Request) (composer.Result, error)
}

type Options struct {
	Generator Generator
	Catalog   *catalog.Catalog
	// BGM holds the audio assets, looked up by bare file name.
	BGM fs.FS
	// Static is served at "/" when set.
	Static         fs.FS
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type Server struct {
	generator      Generator
	catalog        *catalog.Catalog
	bgm            fs.FS
	bgmFiles       map[string]struct{}
	static         fs.FS
	maxUploadBytes int64
	logger         *slog.Logger
}

const defaultMaxUploadBytes = 25 << 20

func New(opts Options) *Server {
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Server{
		generator:      opts.Generator,
		catalog:        cat,
		bgm:            opts.BGM,
		bgmFiles:       cat.BGMFiles(),
		static:         opts.Static,
		maxUploadBytes: maxUpload,
		logger:         logger,
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate-text", s.handleGenerate)
	mux.HandleFunc("GET /api/bgm/{file}", s.handleBGM)
	mux.HandleFunc("GET /api/relationships", s.handleRelationships)
	mux.HandleFunc("GET /api/tones", s.handleTones)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.static != nil {
		mux.Handle("GET /", http.FileServer(http.FS(s.static)))
	}

	return withRequestID(
		withLogging(
			withRecover(
				withSecurityHeaders(mux),
			),
		),
		s.logger,
	)
}
