package proxy

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"profilecard/internal/prefs"
)

// Unchecked checkboxes are not submitted, so each one is followed by a
// hidden "off" input; url.Values.Get returns the checkbox value when set.
var settingsTmpl = template.Must(template.New("settings").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Profile card settings</title></head>
<body>
<h1>Profile card settings</h1>
{{if .Error}}<p class="error" role="alert">{{.Error}}</p>{{end}}
<form method="post" action="/settings">
<input type="hidden" name="return" value="{{.Return}}">
<label>Theme
<select name="theme">
<option value="dark"{{if eq .Prefs.Theme "dark"}} selected{{end}}>Dark</option>
<option value="light"{{if eq .Prefs.Theme "light"}} selected{{end}}>Light</option>
</select></label><br>
<label>Avatar size <input type="number" name="avatarSize" min="1" max="512" value="{{.Prefs.AvatarSize}}"></label><br>
<label>Font size <input type="number" name="fontSize" min="1" max="48" value="{{.Prefs.FontSize}}"></label><br>
<label><input type="checkbox" name="compact" value="on"{{if .Prefs.Compact}} checked{{end}}> Compact</label>
<input type="hidden" name="compact" value="off"><br>
<label><input type="checkbox" name="showCollectibles" value="on"{{if .Prefs.ShowCollectibles}} checked{{end}}> Show collectibles</label>
<input type="hidden" name="showCollectibles" value="off"><br>
<button type="submit">Save</button>
</form>
</body></html>`))

type settingsView struct {
	Prefs  prefs.Preferences
	Return string
	Error  string
}

func (s *Server) writeSettings(w http.ResponseWriter, status int, v settingsView) {
	var buf bytes.Buffer
	if err := settingsTmpl.Execute(&buf, v); err != nil {
		s.logger.Error("Unable to render settings", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ret := localPath(firstNonEmpty(r.URL.Query().Get("return"), refererPath(r)), "/settings")
	s.writeSettings(w, http.StatusOK, settingsView{Prefs: s.cfg.Prefs.Current(), Return: ret})
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ret := localPath(r.PostForm.Get("return"), "/settings")
	if _, err := s.cfg.Prefs.Update(r.Context(), r.PostForm); err != nil {
		s.requestLogger(r).Info("Settings rejected", zap.Error(err))
		s.writeSettings(w, http.StatusBadRequest, settingsView{
			Prefs:  s.cfg.Prefs.Current(),
			Return: ret,
			Error:  err.Error(),
		})
		return
	}
	http.Redirect(w, r, ret, http.StatusSeeOther)
}
