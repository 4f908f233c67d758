package value

// Concern is one of the five livability dimensions.
type Concern string

const (
	ConcernNoise       Concern = "noise"
	ConcernAir         Concern = "air"
	ConcernSafety      Concern = "safety"
	ConcernConvenience Concern = "convenience"
	ConcernZoning      Concern = "zoning"
)

// Concerns lists all dimensions in weight order.
func Concerns() []Concern {
	return []Concern{ConcernNoise, ConcernAir, ConcernSafety, ConcernConvenience, ConcernZoning}
}

type SubScores struct {
	Noise       float64 `json:"noise"`
	Air         float64 `json:"air"`
	Safety      float64 `json:"safety"`
	Convenience float64 `json:"convenience"`
	Zoning      float64 `json:"zoning"`
}

// Factor is a single contribution to a sub-score. Delta is negative for
// penalties and positive for bonuses.
type Factor struct {
	Concern   Concern `json:"concern"`
	Kind      string  `json:"kind"`
	Name      string  `json:"name,omitempty"`
	DistanceM float64 `json:"distance_m,omitempty"`
	Delta     float64 `json:"delta"`
}

// Breakdown is the full explanation of a score, persisted as JSONB.
type Breakdown struct {
	SubScores SubScores `json:"sub_scores"`
	Factors   []Factor  `json:"factors"`
	Degraded  []Concern `json:"degraded,omitempty"`
}
