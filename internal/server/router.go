package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/anrwatch/internal/events"
	"github.com/loykin/anrwatch/internal/host"
	"github.com/loykin/anrwatch/internal/surface"
	"github.com/loykin/anrwatch/internal/watchdog"
)

// Router provides embeddable HTTP handlers for the host bridge.
// Endpoints:
//
//	POST   {basePath}/clients            body: {id, kind, pid}
//	DELETE {basePath}/clients/:id
//	POST   {basePath}/clients/:id/pong
//	POST   {basePath}/windows            body: {id, client, title, class, mapped}
//	PATCH  {basePath}/windows/:id        body: {title?, class?, mapped?}
//	DELETE {basePath}/windows/:id
//	GET    {basePath}/windows/:id
//	GET    {basePath}/status
//	GET    {basePath}/events             text/event-stream
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	wd       *watchdog.Watchdog
	table    *host.Table
	bus      *events.Bus
	settings watchdog.Settings
	basePath string
	log      *slog.Logger
}

// RouterConfig wires a Router.
type RouterConfig struct {
	Watchdog *watchdog.Watchdog
	Table    *host.Table
	Bus      *events.Bus
	Settings watchdog.Settings
	BasePath string
	Logger   *slog.Logger
}

// NewRouter constructs a new Router.
// Example basePath: "/api" results in /api/clients, /api/windows, /api/status.
func NewRouter(cfg RouterConfig) *Router {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		wd:       cfg.Watchdog,
		table:    cfg.Table,
		bus:      cfg.Bus,
		settings: cfg.Settings,
		basePath: sanitizeBase(cfg.BasePath),
		log:      log,
	}
}

// Register mounts the routes on an existing gin engine or group.
func (r *Router) Register(g gin.IRouter) {
	group := g.Group(r.basePath)
	group.POST("/clients", r.handleAddClient)
	group.DELETE("/clients/:id", r.handleRemoveClient)
	group.POST("/clients/:id/pong", r.handlePong)
	group.POST("/windows", r.handleOpenWindow)
	group.PATCH("/windows/:id", r.handlePatchWindow)
	group.DELETE("/windows/:id", r.handleCloseWindow)
	group.GET("/windows/:id", r.handleGetWindow)
	group.GET("/status", r.handleStatus)
	group.GET("/events", r.handleEvents)
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	r.Register(g)
	return g
}

// NewServer listens on addr and serves h in the background. Bind errors are
// returned; the caller owns Shutdown.
func NewServer(addr string, h http.Handler) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.Serve(ln) }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type clientReq struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	PID  int    `json:"pid"`
}

type windowReq struct {
	ID     string `json:"id"`
	Client string `json:"client"`
	Title  string `json:"title"`
	Class  string `json:"class"`
	Mapped bool   `json:"mapped"`
}

// WindowInfo is the GET /windows/:id body.
type WindowInfo struct {
	ID            string  `json:"id"`
	Client        string  `json:"client,omitempty"`
	Title         string  `json:"title"`
	Class         string  `json:"class"`
	Mapped        bool    `json:"mapped"`
	NotResponding bool    `json:"not_responding"`
	Tint          float32 `json:"tint"`
}

// StatusResp is the GET /status body.
type StatusResp struct {
	Active        bool             `json:"active"`
	PromptEnabled bool             `json:"prompt_enabled"`
	Threshold     int              `json:"threshold"`
	Clients       int              `json:"clients"`
	Windows       int              `json:"windows"`
	Records       []watchdog.State `json:"records"`
}

func (r *Router) handleAddClient(c *gin.Context) {
	var req clientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !isSafeName(req.ID) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid id: allowed [A-Za-z0-9._-]"})
		return
	}
	kind, ok := surface.ParseKind(req.Kind)
	if !ok {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "kind must be shell or compat"})
		return
	}
	if _, err := r.table.AddClient(req.ID, kind, req.PID); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, okResp{OK: true})
}

func (r *Router) handleRemoveClient(c *gin.Context) {
	id := c.Param("id")
	if !r.wd.Active() {
		cl, _, err := r.table.RemoveClient(id)
		if err != nil {
			writeError(c, err)
			return
		}
		host.Destroy(cl)
		writeJSON(c, http.StatusOK, okResp{OK: true})
		return
	}
	err := r.wd.Do(c.Request.Context(), func(e *watchdog.Engine) error {
		cl, owned, err := r.table.RemoveClient(id)
		if err != nil {
			return err
		}
		for _, w := range owned {
			e.OnWindowClosed(w)
		}
		host.Destroy(cl)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handlePong(c *gin.Context) {
	cl, ok := r.table.Client(c.Param("id"))
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown client"})
		return
	}
	err := r.wd.Do(c.Request.Context(), func(e *watchdog.Engine) error {
		e.OnResponse(cl)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleOpenWindow(c *gin.Context) {
	var req windowReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !isSafeName(req.ID) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid id: allowed [A-Za-z0-9._-]"})
		return
	}
	err := r.onLoop(c.Request.Context(), func(e *watchdog.Engine) error {
		w, err := r.table.OpenWindow(req.ID, req.Client, req.Title, req.Class, req.Mapped)
		if err != nil {
			return err
		}
		if e != nil {
			e.OnWindowOpened(w)
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, okResp{OK: true})
}

func (r *Router) handlePatchWindow(c *gin.Context) {
	var p host.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	w, ok := r.table.Window(c.Param("id"))
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown window"})
		return
	}
	err := r.onLoop(c.Request.Context(), func(*watchdog.Engine) error {
		r.table.Apply(w, p)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleCloseWindow(c *gin.Context) {
	id := c.Param("id")
	err := r.onLoop(c.Request.Context(), func(e *watchdog.Engine) error {
		w, err := r.table.CloseWindow(id)
		if err != nil {
			return err
		}
		if e != nil {
			e.OnWindowClosed(w)
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleGetWindow(c *gin.Context) {
	w, ok := r.table.Window(c.Param("id"))
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown window"})
		return
	}
	var info WindowInfo
	err := r.onLoop(c.Request.Context(), func(e *watchdog.Engine) error {
		info = WindowInfo{
			ID:     w.ID,
			Title:  w.Title,
			Class:  w.Class,
			Mapped: w.Mapped,
			Tint:   w.NotRespondingTint(),
		}
		if o := w.Owner(); o != nil {
			info.Client = o.ID()
		}
		if e != nil {
			info.NotResponding = e.IsNotResponding(w)
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, info)
}

func (r *Router) handleStatus(c *gin.Context) {
	resp := StatusResp{Active: r.wd.Active(), Records: []watchdog.State{}}
	if r.settings != nil {
		resp.PromptEnabled = r.settings.PromptEnabled()
		resp.Threshold = r.settings.Threshold()
	}
	resp.Clients, resp.Windows = r.table.Counts()
	if resp.Active {
		states, err := r.wd.Snapshot(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Records = states
	}
	writeJSON(c, http.StatusOK, resp)
}

// handleEvents streams bus events. ?type=anr,anrrecovered narrows the stream.
func (r *Router) handleEvents(c *gin.Context) {
	filter := parseTypes(c.Query("type"))
	ch, cancel := r.bus.Subscribe(64)
	defer cancel()
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case e, ok := <-ch:
			if !ok {
				return false
			}
			if len(filter) > 0 && !filter[e.Type] {
				return true
			}
			c.SSEvent(string(e.Type), e.Data())
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// onLoop runs fn on the watchdog loop, or inline with a nil engine when the
// watchdog is inactive.
func (r *Router) onLoop(ctx context.Context, fn func(e *watchdog.Engine) error) error {
	if !r.wd.Active() {
		return fn(nil)
	}
	return r.wd.Do(ctx, fn)
}

func writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, host.ErrInvalid):
		code = http.StatusBadRequest
	case errors.Is(err, host.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, host.ErrExists):
		code = http.StatusConflict
	case errors.Is(err, watchdog.ErrInactive), errors.Is(err, watchdog.ErrStopped):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	writeJSON(c, code, errorResp{Error: err.Error()})
}
