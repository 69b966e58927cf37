package channels

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/monica-concierge/monica/internal/artifact"
	"github.com/monica-concierge/monica/internal/bus"
	"github.com/monica-concierge/monica/internal/catalog"
	"github.com/monica-concierge/monica/internal/shared/httpkit"
)

const (
	serviceName       = "monica"
	defaultKeepAlive  = 15 * time.Second
	defaultMaxUpload  = 10 << 20
	imageUploadedNote = "[The customer uploaded an image: %s]"
)

var (
	errForbidden = errors.New("user not allowed")
	errBadFrame  = errors.New("bad message")
	errBadChatID = errors.New("user and session ids must be non-empty and must not contain ':'")
)

// WebConfig configures the web channel.
type WebConfig struct {
	Addr           string
	AllowFrom      []string
	MetricsToken   string
	MaxUploadBytes int64
	KeepAlive      time.Duration
}

// clientFrame is a message sent by the storefront on /send or the WebSocket.
type clientFrame struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// WebChannel serves the storefront: an SSE/WebSocket event stream per chat,
// message and upload endpoints, and a read-only catalog API.
type WebChannel struct {
	Base
	cfg     WebConfig
	catalog *catalog.Catalog
	store   *artifact.Store
	hub     *eventHub
	log     *slog.Logger
	router  http.Handler
}

// NewWebChannel creates the web channel. reg may be nil, in which case no
// HTTP metrics are recorded and /metrics is not served.
func NewWebChannel(
	cfg WebConfig,
	b bus.Bus,
	cat *catalog.Catalog,
	store *artifact.Store,
	reg *prometheus.Registry,
	log *slog.Logger,
) *WebChannel {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = defaultKeepAlive
	}
	if log == nil {
		log = slog.Default()
	}

	c := &WebChannel{
		Base:    NewBase(bus.ChannelWeb, b, cfg.AllowFrom),
		cfg:     cfg,
		catalog: cat,
		store:   store,
		hub:     newEventHub(),
		log:     log,
	}
	c.router = c.routes(reg)
	return c
}

func (c *WebChannel) Name() string { return string(bus.ChannelWeb) }

// Handler returns the HTTP handler of the channel.
func (c *WebChannel) Handler() http.Handler { return c.router }

func (c *WebChannel) routes(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(httpkit.Recoverer)
	r.Use(httpkit.Logging(c.log))
	r.Use(httpkit.CORS)

	if reg != nil {
		metrics := httpkit.NewMetrics(reg)
		r.Use(metrics.Middleware(serviceName, httpkit.RoutePatternOrPath))

		h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		if c.cfg.MetricsToken != "" {
			r.With(httpkit.BearerAuth(c.cfg.MetricsToken)).Handle("/metrics", h)
		} else {
			r.Handle("/metrics", h)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/products", c.handleProducts)
	r.Get("/products/{id}", c.handleProduct)

	r.Get("/events/{user}/{session}", c.handleEvents)
	r.Get("/ws/{user}/{session}", c.handleWS)
	r.Post("/send/{user}/{session}", c.handleSend)
	r.Post("/upload/{user}/{session}", c.handleUpload)
	r.Get("/uploads/{user}/{session}/{name}", c.handleArtifact)

	return r
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (c *WebChannel) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           c.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when ctx is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info("web channel listening", "addr", c.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web channel: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Send pushes an outbound agent message to the chat's open streams.
func (c *WebChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	ev, ok := eventFor(msg)
	if !ok {
		return nil
	}
	if n := c.hub.publish(msg.ChatID(), ev); n == 0 {
		c.log.Debug("no open stream for chat", "chat", msg.ChatID())
	}
	return nil
}

func (c *WebChannel) handleProducts(w http.ResponseWriter, _ *http.Request) {
	httpkit.WriteJSON(w, http.StatusOK, c.catalog.Products())
}

func (c *WebChannel) handleProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := c.catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		httpkit.WriteError(w, r, http.StatusNotFound, "product not found", nil)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, p)
}

// handleEvents streams the chat's events as Server-Sent Events.
// is_audio=true is accepted; responses are always text.
func (c *WebChannel) handleEvents(w http.ResponseWriter, r *http.Request) {
	user, session, ok := c.chatParams(w, r)
	if !ok {
		return
	}
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		httpkit.WriteError(w, r, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	id := chatID(user, session)
	events, unsubscribe := c.hub.subscribe(id)
	defer unsubscribe()

	c.log.Info("client connected", "transport", "sse", "chat", id, "is_audio", r.URL.Query().Get("is_audio") == "true")

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(c.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			c.log.Info("client disconnected", "transport", "sse", "chat", id)
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				c.log.Error("encode event", "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func (c *WebChannel) handleSend(w http.ResponseWriter, r *http.Request) {
	user, session, ok := c.chatParams(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, c.cfg.MaxUploadBytes*4/3+4096)
	var f clientFrame
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		httpkit.WriteError(w, r, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}

	if err := c.accept(user, session, f); err != nil {
		c.writeAcceptError(w, r, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (c *WebChannel) writeAcceptError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errForbidden):
		httpkit.WriteError(w, r, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, errBadFrame), errors.Is(err, errBadChatID):
		httpkit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	default:
		c.log.Error("accept message", "err", err)
		httpkit.WriteError(w, r, http.StatusInternalServerError, "internal error", nil)
	}
}

// chatParams reads the user and session path segments. It writes a 400 for
// ids that cannot name a chat and a 403 for users off the allow-list.
func (c *WebChannel) chatParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	user, session := chi.URLParam(r, "user"), chi.URLParam(r, "session")
	if !validChatID(user) || !validChatID(session) {
		httpkit.WriteError(w, r, http.StatusBadRequest, errBadChatID.Error(), nil)
		return "", "", false
	}
	if !c.IsAllowed(user) {
		httpkit.WriteError(w, r, http.StatusForbidden, errForbidden.Error(), nil)
		return "", "", false
	}
	return user, session, true
}

// accept validates a client frame and publishes it to the agent. Images are
// stored as session artifacts and attached to the message.
func (c *WebChannel) accept(user, session string, f clientFrame) error {
	if !validChatID(user) || !validChatID(session) {
		return errBadChatID
	}
	if !c.IsAllowed(user) {
		return errForbidden
	}
	id := chatID(user, session)

	switch {
	case f.MimeType == mimeText:
		if strings.TrimSpace(f.Data) == "" {
			return fmt.Errorf("%w: empty text", errBadFrame)
		}
		c.HandleMessage(user, id, f.Data, nil, nil)
		return nil

	case strings.HasPrefix(f.MimeType, "image/"):
		data, err := base64.StdEncoding.DecodeString(stripDataURL(f.Data))
		if err != nil {
			return fmt.Errorf("%w: image data is not base64", errBadFrame)
		}
		if len(data) == 0 || int64(len(data)) > c.cfg.MaxUploadBytes {
			return fmt.Errorf("%w: image size out of range", errBadFrame)
		}

		key := bus.SessionKey(bus.ChannelWeb, id)
		a, err := c.store.Save(key, "", f.MimeType, data)
		if err != nil {
			return err
		}
		path, err := c.store.Path(key, a.Name)
		if err != nil {
			return err
		}
		c.HandleMessage(user, id, fmt.Sprintf(imageUploadedNote, a.Name), []string{path}, map[string]any{"artifact": a.Name})
		return nil
	}

	return fmt.Errorf("%w: unsupported mime_type %q", errBadFrame, f.MimeType)
}

// handleUpload stores a multipart image upload as a session artifact.
func (c *WebChannel) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, session, ok := c.chatParams(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, c.cfg.MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpkit.WriteError(w, r, http.StatusBadRequest, "missing 'file' in form-data", err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, c.cfg.MaxUploadBytes+1))
	if err != nil {
		httpkit.WriteError(w, r, http.StatusBadRequest, "read upload", err.Error())
		return
	}
	if int64(len(data)) > c.cfg.MaxUploadBytes {
		httpkit.WriteError(w, r, http.StatusRequestEntityTooLarge, "file too large", nil)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		httpkit.WriteError(w, r, http.StatusBadRequest, "only images can be uploaded", mimeType)
		return
	}

	a, err := c.store.Save(bus.SessionKey(bus.ChannelWeb, chatID(user, session)), header.Filename, mimeType, data)
	if err != nil {
		c.log.Error("save upload", "err", err)
		httpkit.WriteError(w, r, http.StatusInternalServerError, "upload failed", nil)
		return
	}

	path := "/uploads/" + url.PathEscape(user) + "/" + url.PathEscape(session) + "/" + a.Name
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"url":  requestScheme(r) + "://" + r.Host + path,
		"path": path,
		"name": a.Name,
		"size": a.Size,
	})
}

func (c *WebChannel) handleArtifact(w http.ResponseWriter, r *http.Request) {
	user, session, ok := c.chatParams(w, r)
	if !ok {
		return
	}
	path, err := c.store.Path(bus.SessionKey(bus.ChannelWeb, chatID(user, session)), chi.URLParam(r, "name"))
	if err != nil {
		httpkit.WriteError(w, r, http.StatusNotFound, "artifact not found", nil)
		return
	}
	http.ServeFile(w, r, path)
}

// validChatID reports whether s can be a user or session id. The ':'
// separator is reserved so that chatID stays unambiguous.
func validChatID(s string) bool {
	return s != "" && !strings.Contains(s, ":")
}

// chatID identifies one storefront conversation.
func chatID(user, session string) string {
	return user + ":" + session
}

// stripDataURL removes a "data:<mime>;base64," prefix if present.
func stripDataURL(s string) string {
	if strings.HasPrefix(s, "data:") {
		if _, rest, ok := strings.Cut(s, ","); ok {
			return rest
		}
	}
	return s
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
