package httptransport

// Request is the single JSON envelope accepted on POST. A health-check
// variant ({"action":"health"} or {"method":"HEALTH"}) bypasses
// authentication and rate limiting.
type Request struct {
	Method  string         `json:"method"`
	Action  string         `json:"action,omitempty"`
	Sheet   string         `json:"sheet"`
	Data    map[string]any `json:"data,omitempty"`
	IDToken string         `json:"idToken,omitempty"`
}

// Operation outcome is conveyed only through Status; the transport status
// stays 200 either way.
type SuccessResponse struct {
	Status         string `json:"status"`
	Data           any    `json:"data"`
	Timestamp      string `json:"timestamp"`
	ProcessingTime int64  `json:"processingTime"`
}

type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	ErrorType string `json:"errorType"`
}

// ReadyResponse is the static info document served on plain GET.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Endpoints map[string]string `json:"endpoints"`
}
