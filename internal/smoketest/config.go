package smoketest

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Requests  int           // Number of /recommend requests to fire
	Workers   int           // Number of concurrent workers
	Timeout   time.Duration // HTTP request timeout
	Favorites []string      // Pool the request favorites are drawn from
	LogFile   string        // Log file for test output
	Verbose   bool          // Enable verbose logging
}

// RecommendRequest is the /recommend request body.
type RecommendRequest struct {
	Favorites []string `json:"favorites"`
}

// Recommendation mirrors one entry of a /recommend response.
type Recommendation struct {
	Name   string  `json:"name"`
	Image  *string `json:"image"`
	Reason string  `json:"reason"`
}

// RecommendResponse is the /recommend success body.
type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// ErrorResponse is the body of any non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Stats holds smoke run statistics.
type Stats struct {
	RequestsSent       int
	RequestsSuccessful int
	RequestsFailed     int
	Violations         int
	DistinctInputs     int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
