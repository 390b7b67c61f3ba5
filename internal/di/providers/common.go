package providers

import "time"

// shutdownTimeout bounds how long the HTTP server drains in-flight requests.
const shutdownTimeout = 30 * time.Second
