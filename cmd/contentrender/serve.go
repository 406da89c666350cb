package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	contentrender "github.com/alnah/go-contentrender"
	"github.com/alnah/go-contentrender/internal/config"
	"github.com/alnah/go-contentrender/internal/hints"
	"github.com/alnah/go-contentrender/internal/logger"
	"github.com/alnah/go-contentrender/internal/store"
)

const shutdownTimeout = 10 * time.Second

// RequestRenderer renders wire requests without storing them.
type RequestRenderer interface {
	RenderRequest(ctx context.Context, req contentrender.Request) (*contentrender.RenderedContent, error)
}

// DocumentService reads and writes stored documents.
type DocumentService interface {
	Load(ctx context.Context, id string) (*contentrender.StoredDocument, error)
	Save(ctx context.Context, id string, req contentrender.Request) (*contentrender.StoredDocument, error)
}

// Compile-time interface implementation checks.
var (
	_ RequestRenderer = (*contentrender.Renderer)(nil)
	_ DocumentService = (*contentrender.Backfiller)(nil)
)

// api holds the HTTP handlers' dependencies.
type api struct {
	renderer RequestRenderer
	docs     DocumentService
	log      *logger.Logger
	newID    func() string
	maxBody  int64
	toc      *contentrender.TOCOptions
	css      string
	origins  []string // CORS allowlist, empty disables CORS
}

// APIError is the error body of every failed request.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// documentResponse is a stored document as served over HTTP.
type documentResponse struct {
	ID          string                    `json:"id"`
	ContentType contentrender.ContentType `json:"contentType"`
	contentrender.RenderedContent
	UpdatedAt time.Time `json:"updatedAt"`
}

func newDocumentResponse(doc *contentrender.StoredDocument) documentResponse {
	return documentResponse{
		ID:              doc.ID,
		ContentType:     doc.Request.ContentType,
		RenderedContent: doc.Content(),
		UpdatedAt:       doc.UpdatedAt,
	}
}

// newRouter registers the API routes.
func newRouter(a *api) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.log))
	if len(a.origins) > 0 {
		r.Use(corsMiddleware(a.origins))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/render", a.render)
		v1.POST("/documents", a.createDocument)
		v1.PUT("/documents/:id", a.updateDocument)
		v1.GET("/documents/:id", a.getDocument)
		v1.GET("/documents/:id/preview", a.previewDocument)
	}
	return r
}

// corsMiddleware lets browser editors call the API from the given origins.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"Location"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// requestLogger logs one line per request.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// POST /v1/render
func (a *api) render(c *gin.Context) {
	req, ok := a.bindRequest(c)
	if !ok {
		return
	}
	content, err := a.renderer.RenderRequest(c.Request.Context(), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// POST /v1/documents
func (a *api) createDocument(c *gin.Context) {
	req, ok := a.bindRequest(c)
	if !ok {
		return
	}
	doc, err := a.docs.Save(c.Request.Context(), a.newID(), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.Header("Location", "/v1/documents/"+doc.ID)
	c.JSON(http.StatusCreated, newDocumentResponse(doc))
}

// PUT /v1/documents/:id
func (a *api) updateDocument(c *gin.Context) {
	req, ok := a.bindRequest(c)
	if !ok {
		return
	}
	doc, err := a.docs.Save(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(doc))
}

// GET /v1/documents/:id
func (a *api) getDocument(c *gin.Context) {
	doc, err := a.docs.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(doc))
}

// GET /v1/documents/:id/preview
func (a *api) previewDocument(c *gin.Context) {
	doc, err := a.docs.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	content := doc.Content()
	title := doc.ID
	if len(content.Headings) > 0 {
		title = content.Headings[0].Text
	}
	page := contentrender.PreviewPage(c.Request.Context(), title, &content, a.toc, a.css)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// bindRequest decodes the JSON body, writing a 4xx response on failure.
func (a *api) bindRequest(c *gin.Context) (contentrender.Request, bool) {
	var req contentrender.Request
	if a.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxBody)
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
			return req, false
		}
		respondError(c, http.StatusBadRequest, "invalid_json", err)
		return req, false
	}
	return req, true
}

// respondError maps domain errors to status codes.
func (a *api) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, contentrender.ErrContentValidation):
		respondError(c, http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, contentrender.ErrContentRender):
		respondError(c, http.StatusUnprocessableEntity, "render_failed", err)
	case errors.Is(err, contentrender.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusServiceUnavailable, "canceled", err)
	default:
		a.log.Error("request failed", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common commonFlags
	addr   string
}

// runServeCmd runs the HTTP API until ctx is canceled.
func runServeCmd(ctx context.Context, args []string, env *Environment) error {
	flags := &serveFlags{}
	fs := newFlagSet("serve", printServeUsage, env)
	addCommonFlags(fs, &flags.common)
	fs.StringVarP(&flags.addr, "addr", "a", "", "listen address (overrides server.addr)")
	if err := parseFlagSet(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printServeUsage(env.Stdout)
			return nil
		}
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: serve takes no arguments", ErrUsage)
	}

	cfg, _, err := resolveConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}

	log, err := newLogger(cfg.Log, flags.common)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidValue, err)
	}
	defer log.Sync()

	backend, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening %s store: %w%s", cfg.Store.Backend, err,
			hints.ForStoreOpen(cfg.Store.Backend, cfg.Store.RedisAddr))
	}
	defer backend.Close()

	handler, err := buildAPI(cfg, backend, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serveUntilDone(ctx, srv, log)
}

// buildAPI wires renderer, backfiller and router from cfg.
func buildAPI(cfg *config.Config, backend contentrender.Store, log *logger.Logger) (*gin.Engine, error) {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	renderer := newRenderer(cfg.Render, log)
	var opts []contentrender.BackfillOption
	if cfg.Render.FallbackHTML != "" {
		opts = append(opts, contentrender.WithFallbackHTML(cfg.Render.FallbackHTML))
	}

	css, err := loadStylesheet(cfg.Preview.Stylesheet, cfg.Preview.AssetPath)
	if err != nil {
		return nil, err
	}

	return newRouter(&api{
		renderer: renderer,
		docs:     contentrender.NewBackfiller(backend, renderer, opts...),
		log:      log,
		newID:    uuid.NewString,
		maxBody:  cfg.Server.MaxBodyBytes,
		toc: &contentrender.TOCOptions{
			Title:    cfg.Preview.TOCTitle,
			MinDepth: cfg.Preview.TOCMinDepth,
			MaxDepth: cfg.Preview.TOCMaxDepth,
		},
		css:     css,
		origins: cfg.Server.CORSOrigins,
	}), nil
}

// serveUntilDone runs srv and shuts it down gracefully when ctx ends.
func serveUntilDone(ctx context.Context, srv *http.Server, log *logger.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
