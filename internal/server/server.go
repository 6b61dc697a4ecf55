// Package server is the single page web form: enter a topic, watch the
// workflow log, listen to the voiceovers, browse the images and download
// the video.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"

	"reelcrew/internal/app"
	"reelcrew/internal/job"
)

//go:embed templates/index.html
var templates embed.FS

// Generator runs one topic to a finished video.
type Generator interface {
	Run(ctx context.Context, topic string) (*app.GenerateResult, error)
}

// Workspace is where the generated files live.
type Workspace interface {
	OutputPath() string
	Clear() error
}

type Server struct {
	gen  Generator
	ws   Workspace
	tmpl *template.Template
	md   goldmark.Markdown

	// running is held for the whole of a generation; a second submission
	// is refused instead of queued.
	running sync.Mutex

	mu        sync.Mutex
	lastTopic string
	last      *app.GenerateResult
}

type page struct {
	Topic      string
	Error      string
	Notice     string
	Busy       bool
	VideoReady bool
	Log        template.HTML
	Generated  string
	Items      []itemView
}

// itemView is one caption of the generated content panel.
type itemView struct {
	Position  int
	Caption   string
	Voiceover bool
	Image     bool
	Problem   string
}

func New(gen Generator, ws Workspace) (*Server, error) {
	if gen == nil {
		return nil, errors.New("generator required")
	}
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Server{
		gen:  gen,
		ws:   ws,
		tmpl: tmpl,
		md:   goldmark.New(),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /video", s.handleVideo)
	mux.HandleFunc("GET /voiceovers/{pos}", s.handleArtifact(job.KindVoiceover))
	mux.HandleFunc("GET /images/{pos}", s.handleArtifact(job.KindImage))
	mux.HandleFunc("POST /clear", s.handleClear)
	return logMiddleware(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	p := s.basePage()
	s.mu.Lock()
	topic, last := s.lastTopic, s.last
	s.mu.Unlock()
	if last != nil {
		p.Topic = topic
		s.fill(&p, last)
	}
	s.render(w, http.StatusOK, p)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimSpace(r.FormValue("topic"))
	if topic == "" {
		p := s.basePage()
		p.Error = "Please enter a topic."
		s.render(w, http.StatusBadRequest, p)
		return
	}

	if !s.running.TryLock() {
		p := s.basePage()
		p.Topic = topic
		p.Error = "A video is already being generated."
		s.render(w, http.StatusConflict, p)
		return
	}
	defer s.running.Unlock()

	slog.Info("Generating video", "topic", topic)
	result, err := s.gen.Run(r.Context(), topic)

	if result != nil {
		s.mu.Lock()
		s.lastTopic, s.last = topic, result
		s.mu.Unlock()
	}

	p := page{Topic: topic, VideoReady: s.videoExists()}
	if result != nil {
		s.fill(&p, result)
	}
	if err != nil {
		slog.Error("Generation failed", "topic", topic, "error", err)
		p.Error = "An error occurred: " + err.Error()
		s.render(w, http.StatusInternalServerError, p)
		return
	}

	p.Notice = "Video generation complete!"
	s.render(w, http.StatusOK, p)
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "video/mp4")
	serveFile(w, r, s.ws.OutputPath(), true)
}

// handleArtifact serves a finished voiceover or image of the last run by
// its 1-based caption position.
func (s *Server) handleArtifact(kind job.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pos, err := strconv.Atoi(r.PathValue("pos"))
		if err != nil {
			http.Error(w, "bad position", http.StatusBadRequest)
			return
		}
		path, ok := s.artifactPath(kind, pos)
		if !ok {
			http.Error(w, string(kind)+" not found", http.StatusNotFound)
			return
		}
		serveFile(w, r, path, false)
	}
}

func (s *Server) artifactPath(kind job.Kind, pos int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.Job == nil || pos < 1 || pos > len(s.last.Job.Items) {
		return "", false
	}
	a := s.last.Job.Items[pos-1].Artifact(kind)
	if a.Status != job.StatusDone || a.Path == "" {
		return "", false
	}
	return a.Path, true
}

func serveFile(w http.ResponseWriter, r *http.Request, path string, attachment bool) {
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	if attachment {
		w.Header().Set("Content-Disposition", `attachment; filename="`+info.Name()+`"`)
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		p := s.basePage()
		p.Error = "Cannot clear while a video is being generated."
		s.render(w, http.StatusConflict, p)
		return
	}
	defer s.running.Unlock()

	p := page{}
	if err := s.ws.Clear(); err != nil {
		p.Error = "Failed to clear generated content: " + err.Error()
		s.render(w, http.StatusInternalServerError, p)
		return
	}

	s.mu.Lock()
	s.lastTopic, s.last = "", nil
	s.mu.Unlock()

	p.Notice = "Generated content cleared."
	s.render(w, http.StatusOK, p)
}

func (s *Server) basePage() page {
	busy := !s.running.TryLock()
	if !busy {
		s.running.Unlock()
	}
	return page{Busy: busy, VideoReady: s.videoExists()}
}

// fill adds the workflow log and the generated content panel of result.
func (s *Server) fill(p *page, result *app.GenerateResult) {
	p.Log = s.renderLog(result.Messages)
	if !result.Finished.IsZero() {
		p.Generated = result.Finished.Format("2006-01-02 15:04:05")
	}
	if result.Job == nil {
		return
	}
	for _, it := range result.Job.Items {
		view := itemView{
			Position:  it.Position,
			Caption:   it.Caption,
			Voiceover: it.Voiceover.Status == job.StatusDone,
			Image:     it.Image.Status == job.StatusDone,
		}
		var problems []string
		for _, a := range []job.Artifact{it.Voiceover, it.Image} {
			if a.Error != "" {
				problems = append(problems, a.Error)
			}
		}
		view.Problem = strings.Join(problems, "; ")
		p.Items = append(p.Items, view)
	}
}

func (s *Server) videoExists() bool {
	info, err := os.Stat(s.ws.OutputPath())
	return err == nil && !info.IsDir()
}

// renderLog turns the transcript into HTML. Raw HTML in messages is not
// passed through.
func (s *Server) renderLog(msgs []app.Message) template.HTML {
	var md strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&md, "#### %s\n\n", m.Agent)
		fence := "```"
		for strings.Contains(m.Content, fence) {
			fence += "`"
		}
		fmt.Fprintf(&md, "%s\n%s\n%s\n\n", fence, m.Content, fence)
	}

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(md.String()), &buf); err != nil {
		slog.Warn("Failed to render workflow log", "error", err)
		return template.HTML(template.HTMLEscapeString(md.String()))
	}
	return template.HTML(buf.String())
}

func (s *Server) render(w http.ResponseWriter, status int, p page) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, p); err != nil {
		slog.Error("Failed to render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start))
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("Starting web server", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
