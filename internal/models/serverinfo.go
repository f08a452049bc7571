package models

// ServerInfoData is the payload reported by the status endpoint.
// ServerID is fixed for the process lifetime; RequestID is fresh per call.
type ServerInfoData struct {
	ServerID    string `json:"serverId"`
	ServerTime  string `json:"serverTime"`
	RequestID   string `json:"requestId"`
	Environment string `json:"environment"`
	Timestamp   int64  `json:"timestamp"`
}

type ResponseMetadata struct {
	RequestTime  string `json:"requestTime"`
	ResponseTime string `json:"responseTime"`
}

// ServerInfoResponse is the success envelope of GET /api/server-info.
type ServerInfoResponse struct {
	Success  bool             `json:"success"`
	Data     ServerInfoData   `json:"data"`
	Metadata ResponseMetadata `json:"metadata"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the failure envelope shared by every JSON route.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// DataResponse wraps any other successful JSON payload.
type DataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}
