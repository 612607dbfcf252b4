package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the dashboard API
func SetupRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/state", h.GetState)
	r.POST("/account", h.SwitchAccount)
	r.POST("/range", h.SetRange)
	r.GET("/views/:view", h.GetView)

	r.GET("/posts", h.ListPosts)
	r.GET("/posts/:index/text", h.PostText)

	r.POST("/notes", h.CreateNote)
	r.DELETE("/notes/:index", h.DeleteNote)
	r.POST("/abtests", h.CreateABTest)
	r.POST("/accounts", h.CreateAccount)

	r.POST("/probe", h.RunProbe)
	r.GET("/export.csv", h.ExportCSV)
	r.GET("/charts/:slot", h.GetChart)
}

// NewRouter builds the engine. Request logging is on in debug mode only.
func NewRouter(h *Handler, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if debug {
		r.Use(gin.Logger())
	}

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	SetupRoutes(r.Group("/api"), h)
	return r
}

const indexHTML = `<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>xdash</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 0; display: flex; background: #f8fafc; }
nav { width: 180px; padding: 16px; background: #0f172a; min-height: 100vh; }
nav a { display: block; color: #cbd5e1; padding: 6px 0; text-decoration: none; cursor: pointer; }
main { flex: 1; padding: 24px; }
img { max-width: 100%; margin: 8px 0; background: white; border-radius: 6px; }
pre { background: white; padding: 12px; border-radius: 6px; overflow: auto; max-height: 60vh; }
</style>
</head>
<body>
<nav id="nav"></nav>
<main><h1 id="title">xdash</h1><div id="charts"></div><pre id="model"></pre></main>
<script>
async function show(view) {
  const res = await fetch('/api/views/' + view);
  const model = await res.json();
  document.getElementById('title').textContent = view;
  const charts = document.getElementById('charts');
  charts.innerHTML = '';
  for (const slot of (model.charts || [])) {
    const img = document.createElement('img');
    img.src = '/api/charts/' + slot + '?t=' + Date.now();
    charts.appendChild(img);
  }
  document.getElementById('model').textContent = JSON.stringify(model, null, 2);
}
fetch('/api/state').then(r => r.json()).then(st => {
  const nav = document.getElementById('nav');
  for (const v of st.views) {
    const a = document.createElement('a');
    a.textContent = v;
    a.onclick = () => show(v);
    nav.appendChild(a);
  }
  const csv = document.createElement('a');
  csv.textContent = 'CSV';
  csv.href = '/api/export.csv';
  nav.appendChild(csv);
  show(st.view);
});
</script>
</body>
</html>`
