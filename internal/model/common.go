package model

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// DownloadingResponse accompanies a 202 for an asset still downloading.
type DownloadingResponse struct {
	Status     string `json:"status"`
	RetryAfter int    `json:"retryAfter"`
}
