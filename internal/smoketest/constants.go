package smoketest

// Limits the server promises for every /recommend response.
const (
	MaxRecommendations = 5
	EmptyFavoritesMsg  = "No favorites provided."
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	maxFavoritesPerRequest  = 3
)

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100
