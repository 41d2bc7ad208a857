package model

// RecapEntry summarizes the records one level received inside the recap window.
type RecapEntry struct {
	LevelID    string
	LevelTitle string
	// Scores are the in-window records, best (most recent) first.
	Scores []Score
	// Improvement is the time gained over the window, never negative.
	Improvement float64
}
