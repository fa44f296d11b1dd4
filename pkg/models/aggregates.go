package models

// Aggregates holds the denormalized summary of an album's songs.
type Aggregates struct {
	SongCount     int     `json:"songCount"`
	TotalDuration int     `json:"totalDuration"`
	AverageRating float64 `json:"averageRating"`
}

// ComputeAggregates derives album aggregates from the given songs. An empty
// slice yields zero values, including a zero average.
func ComputeAggregates(songs []Song) Aggregates {
	agg := Aggregates{SongCount: len(songs)}
	if len(songs) == 0 {
		return agg
	}

	var ratings float64
	for _, s := range songs {
		if s.Duration > 0 {
			agg.TotalDuration += s.Duration
		}
		ratings += s.Rating
	}
	agg.AverageRating = ratings / float64(len(songs))
	return agg
}
