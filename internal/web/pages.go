package web

import (
	"html/template"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/jkarvonen/driveback/internal/backup"
)

var landingTmpl = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head><title>Drive Backup</title></head>
<body>
<h1>Drive Backup</h1>
{{if .Error}}<p style="color:red">Login failed: {{.Error}}</p>{{end}}
<p>Back up your Google Drive to downloadable zip archives.</p>
<button onclick="login()">Sign in with Google</button>
<script>
async function login() {
  const resp = await fetch('/auth/login', {method: 'POST'});
  const body = await resp.json();
  if (body.auth_url) { window.location = body.auth_url; }
}
</script>
</body>
</html>
`))

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><title>Drive Backup — Dashboard</title></head>
<body>
<h1>Dashboard</h1>
<p>State: <b>{{.State}}</b></p>
<p>Files: {{.Processed}} / {{.Total}} ({{.Skipped}} skipped)</p>
<p>Written: {{.Written}}</p>
{{if .CurrentFile}}<p>Current: {{.CurrentFile}}</p>{{end}}
{{if .ErrorMsg}}<p style="color:red">{{.ErrorMsg}}</p>{{end}}
<form method="post" action="/backup/start"><button>Start backup</button></form>
<form method="post" action="/backup/cancel"><button>Cancel</button></form>
<h2>Archives</h2>
<ul>
{{range .Archives}}<li><a href="{{.URL}}">{{.Name}}</a></li>{{else}}<li>None yet</li>{{end}}
</ul>
</body>
</html>
`))

type dashboardData struct {
	State       backup.State
	Total       int
	Processed   int
	Skipped     int
	Written     string
	CurrentFile string
	ErrorMsg    string
	Archives    []archiveInfo
}

// landingPage renders the sign-in page, surfacing any error passed back
// from a failed OAuth callback.
func (s *Server) landingPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")

	if err := landingTmpl.Execute(c.Writer, gin.H{"Error": c.Query("error")}); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// dashboardPage renders the session's progress. Unauthenticated visitors
// are sent back to the landing page.
func (s *Server) dashboardPage(c *gin.Context) {
	sess, ok := s.sessionFromCookie(c)
	if !ok || sess.Token() == nil {
		redirectWithError(c, "not_authenticated")
		return
	}

	snap := sess.Snapshot()

	data := dashboardData{
		State:       snap.State,
		Total:       snap.TotalFiles,
		Processed:   snap.ProcessedFiles,
		Skipped:     snap.SkippedFiles,
		Written:     humanize.Bytes(uint64(snap.BytesWritten)),
		CurrentFile: snap.CurrentFile,
		ErrorMsg:    snap.Error,
	}

	for _, name := range snap.Archives {
		data.Archives = append(data.Archives, archiveInfo{
			Name: name,
			URL:  "/backup/download/" + name,
		})
	}

	c.Header("Content-Type", "text/html; charset=utf-8")

	if err := dashboardTmpl.Execute(c.Writer, data); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
