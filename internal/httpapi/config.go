package httpapi

// defaultMaxUploadBytes caps multipart uploads (200 MiB).
const defaultMaxUploadBytes int64 = 200 << 20

// maxUploadBytes controls the maximum accepted audio upload size.
var maxUploadBytes = defaultMaxUploadBytes

// SetMaxUploadBytes configures the upload cap; n <= 0 restores the default.
func SetMaxUploadBytes(n int64) {
	if n <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
		return
	}
	maxUploadBytes = n
}

// maxBodyBytes bounds non-upload request bodies and websocket text frames.
const maxBodyBytes int64 = 1 << 20

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
)

// SetCORSOptions configures CORS behavior for the HTTP server. An empty
// origin list allows any origin.
func SetCORSOptions(enabled bool, origins []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
}

// version is reported by /health.
var version = "1.0.0"

// SetVersion sets the version string reported by /health.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// swaggerEnabled gates the swagger UI in builds tagged swagger.
var swaggerEnabled bool

// SetSwaggerEnabled toggles the swagger UI.
func SetSwaggerEnabled(on bool) { swaggerEnabled = on }
