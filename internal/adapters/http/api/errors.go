package api

// Client-facing error messages.
const (
	msgNoFavorites     = "No favorites provided."
	msgRecommendFailed = "Failed to generate recommendations."
	msgMethod          = "Method not allowed."
	msgTooManyRequests = "Too many requests."
)
