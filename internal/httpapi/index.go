package httpapi

import "net/http"

const indexHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>asrd</title></head>
<body>
<h1>asrd</h1>
<p>Speech recognition on a single GPU slot.</p>
<ul>
<li><a href="/api/status">/api/status</a></li>
<li><a href="/api/languages">/api/languages</a></li>
<li><a href="/health">/health</a></li>
<li><a href="/metrics">/metrics</a></li>
<li><a href="/swagger/index.html">/swagger</a> (when built with -tags=swagger)</li>
</ul>
<p>POST audio to <code>/api/transcribe</code> as multipart field <code>file</code>;
stream int16 PCM over the websocket at <code>/api/transcribe/stream</code>.</p>
</body>
</html>
`

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}
