package proxy

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"profilecard/internal/restore"
)

const outcomeHeader = "X-Profilecard-Outcome"

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(defaultIndexHTML)))
	io.WriteString(w, defaultIndexHTML)
}

func (s *Server) handleGo(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if !isDigits(id) {
		http.Error(w, "id must be numeric", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/users/"+id+"/profile", http.StatusFound)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	target := s.upstreamURL(r.URL)
	doc, err := s.cfg.Fetcher.Fetch(r.Context(), target, headersFromRequest(r))
	if err != nil {
		log.Warn("Host page unavailable", zap.String("url", target), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	res := s.cfg.Pipeline.Run(r.Context(), r.URL.Path, doc.Root)
	log.Debug("Profile pipeline finished",
		zap.String("outcome", res.Outcome.String()),
		zap.String("id", res.ID.String()),
		zap.String("strategy", res.Strategy))

	body, err := doc.Bytes()
	if err != nil {
		log.Error("Unable to serialize page", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	status := doc.Status
	switch res.Outcome {
	case restore.OutcomeRendered, restore.OutcomeFailed:
		// The placeholder is gone; whatever the host said about it no
		// longer describes the page.
		status = http.StatusOK
	}
	if status == 0 {
		status = http.StatusOK
	}
	for _, sc := range doc.SetCookies {
		w.Header().Add("Set-Cookie", sc)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(outcomeHeader, res.Outcome.String())
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) handleAvatar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !isDigits(id) {
		http.Error(w, "id must be numeric", http.StatusBadRequest)
		return
	}
	if s.cfg.Avatars == nil || s.cfg.AvatarURL == nil {
		http.NotFound(w, r)
		return
	}
	size := s.cfg.Prefs.Current().AvatarSize
	data, err := s.cfg.Avatars.Fetch(r.Context(), s.cfg.AvatarURL(id), size)
	if err != nil {
		s.requestLogger(r).Warn("Avatar unavailable", zap.String("id", id), zap.Error(err))
		http.Error(w, "avatar unavailable", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "pong\n")
}
