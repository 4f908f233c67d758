package scoring

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/value"
)

// Weights of the five sub-scores. They sum to 1.
const (
	WeightNoise       = 0.30
	WeightAir         = 0.25
	WeightSafety      = 0.20
	WeightConvenience = 0.15
	WeightZoning      = 0.10
)

// NeutralSubScore substitutes a sub-score whose provider was unavailable, so
// one dead feed cannot drag the total to zero.
const NeutralSubScore = 50.0

// Search radii per concern, in meters. A source right at the radius edge
// contributes nothing; penalties and bonuses decay linearly with distance.
const (
	NoiseRadiusM       = 300.0
	SafetyRadiusM      = 800.0
	ConvenienceRadiusM = 500.0
	ZoningRadiusM      = 1000.0
)

const safetyBase = 60.0

// Penalty at distance zero, by noise source kind.
var noisePenalties = map[string]float64{
	"motorway":     30,
	"trunk":        30,
	"primary":      20,
	"secondary":    12,
	"railway":      25,
	"airfield":     45,
	"nightclub":    12,
	"bar":          10,
	"pub":          10,
	"karaoke":      10,
	"temple":       8,
	"market":       10,
	"construction": 15,
	"industrial":   18,
}

// Bonus at distance zero, by safety amenity kind.
var safetyBonuses = map[string]float64{
	"police":       15,
	"fire_station": 10,
	"hospital":     12,
	"clinic":       5,
}

// Nightlife venues near home correlate with late-night incidents. Flat
// per-venue penalty, capped.
const (
	nightlifePenaltyPer = 2.0
	nightlifePenaltyCap = 10.0
)

// Convenience bonuses: flat per amenity, counted up to maxCount of each kind
// (the fourth 7-Eleven adds nothing).
var convenienceBonuses = map[string]struct {
	perItem  float64
	maxCount int
}{
	"convenience_store": {12, 3},
	"supermarket":       {10, 2},
	"market":            {8, 2},
	"pharmacy":          {5, 2},
	"school":            {6, 2},
	"park":              {8, 2},
	"restaurant":        {2, 5},
}

// Transit bonuses decay with distance like safety ones; metro counts once
// (the nearest station), the rest up to maxCount.
var transitBonuses = map[string]struct {
	atZero   float64
	maxCount int
}{
	"metro":   {20, 1},
	"youbike": {8, 2},
	"bus":     {3, 4},
}

// Penalty at distance zero, by zoning hazard kind.
var zoningPenalties = map[string]float64{
	"industrial":       25,
	"landfill":         30,
	"incinerator":      30,
	"fuel_depot":       20,
	"gas_plant":        20,
	"power_substation": 8,
	"cemetery":         10,
	"funeral_hall":     12,
	"airport":          20,
	"military":         10,
}

// AQI bands of the Taiwan AQI scale mapped to score ranges, interpolated
// linearly inside each band. Above the last band the score is zero.
var aqiBands = []struct {
	maxAQI int
	hi, lo float64
}{
	{50, 100, 80},
	{100, 80, 60},
	{150, 60, 40},
	{200, 40, 20},
	{300, 20, 5},
}

// Compute turns a collected environment into a score. Pure: same environment
// always produces the same score.
//
// Neutral defaults for an empty (but not degraded) environment: no noise
// sources means a quiet spot (100), no safety amenities leaves the base (60),
// no conveniences scores 0, no hazards scores 100. A degraded concern always
// scores NeutralSubScore and contributes no factors.
func Compute(env entity.Environment) entity.Score {
	var factors []value.Factor

	noise, fs := noiseScore(env)
	factors = append(factors, fs...)

	air, fs := airScore(env)
	factors = append(factors, fs...)

	safety, fs := safetyScore(env)
	factors = append(factors, fs...)

	convenience, fs := convenienceScore(env)
	factors = append(factors, fs...)

	zoning, fs := zoningScore(env)
	factors = append(factors, fs...)

	total := WeightNoise*noise +
		WeightAir*air +
		WeightSafety*safety +
		WeightConvenience*convenience +
		WeightZoning*zoning

	return entity.Score{
		Total: round1(lo.Clamp(total, 0, 100)),
		Breakdown: value.Breakdown{
			SubScores: value.SubScores{
				Noise:       round1(noise),
				Air:         round1(air),
				Safety:      round1(safety),
				Convenience: round1(convenience),
				Zoning:      round1(zoning),
			},
			Factors:  factors,
			Degraded: env.Degraded,
		},
	}
}

func noiseScore(env entity.Environment) (float64, []value.Factor) {
	if env.IsDegraded(value.ConcernNoise) {
		return NeutralSubScore, nil
	}

	score := 100.0

	var factors []value.Factor

	for _, src := range env.Noise {
		base, ok := noisePenalties[src.Kind]
		if !ok {
			continue
		}

		penalty := decayed(base, src.DistanceM, NoiseRadiusM)
		if penalty < 0.05 {
			continue
		}

		score -= penalty
		factors = appendFactor(factors, value.ConcernNoise, src.Kind, src.Name, src.DistanceM, -penalty)
	}

	return lo.Clamp(score, 0, 100), factors
}

func airScore(env entity.Environment) (float64, []value.Factor) {
	if env.IsDegraded(value.ConcernAir) || env.Air == nil {
		return NeutralSubScore, nil
	}

	score := aqiToScore(env.Air.AQI)

	factor := value.Factor{
		Concern:   value.ConcernAir,
		Kind:      "aqi",
		Name:      fmt.Sprintf("%s (AQI %d)", env.Air.Station, env.Air.AQI),
		DistanceM: round1(env.Air.StationDistanceM),
		Delta:     round1(score - 100),
	}

	return score, []value.Factor{factor}
}

func aqiToScore(aqi int) float64 {
	if aqi <= 0 {
		return 100
	}

	bandMin := 0

	for _, band := range aqiBands {
		if aqi <= band.maxAQI {
			fraction := float64(aqi-bandMin) / float64(band.maxAQI-bandMin)
			return band.hi - fraction*(band.hi-band.lo)
		}

		bandMin = band.maxAQI
	}

	return 0
}

func safetyScore(env entity.Environment) (float64, []value.Factor) {
	if env.IsDegraded(value.ConcernSafety) {
		return NeutralSubScore, nil
	}

	score := safetyBase

	var (
		factors          []value.Factor
		nightlifePenalty float64
	)

	for _, amenity := range env.Safety {
		if base, ok := safetyBonuses[amenity.Kind]; ok {
			bonus := decayed(base, amenity.DistanceM, SafetyRadiusM)
			if bonus < 0.05 {
				continue
			}

			score += bonus
			factors = appendFactor(factors, value.ConcernSafety, amenity.Kind, amenity.Name, amenity.DistanceM, bonus)

			continue
		}

		if isNightlife(amenity.Kind) && amenity.DistanceM <= SafetyRadiusM {
			nightlifePenalty += nightlifePenaltyPer
		}
	}

	if nightlifePenalty > 0 {
		nightlifePenalty = math.Min(nightlifePenalty, nightlifePenaltyCap)
		score -= nightlifePenalty
		factors = appendFactor(factors, value.ConcernSafety, "nightlife_density", "", 0, -nightlifePenalty)
	}

	return lo.Clamp(score, 0, 100), factors
}

func isNightlife(kind string) bool {
	return kind == "bar" || kind == "pub" || kind == "nightclub" || kind == "karaoke"
}

func convenienceScore(env entity.Environment) (float64, []value.Factor) {
	if env.IsDegraded(value.ConcernConvenience) {
		return NeutralSubScore, nil
	}

	score := 0.0

	var factors []value.Factor

	counts := map[string]int{}

	for _, amenity := range env.Convenience {
		bonus, ok := convenienceBonuses[amenity.Kind]
		if !ok || amenity.DistanceM > ConvenienceRadiusM {
			continue
		}

		if counts[amenity.Kind] >= bonus.maxCount {
			continue
		}

		counts[amenity.Kind]++
		score += bonus.perItem
		factors = appendFactor(factors, value.ConcernConvenience, amenity.Kind, amenity.Name, amenity.DistanceM, bonus.perItem)
	}

	stopCounts := map[string]int{}

	for _, stop := range env.Transit {
		bonus, ok := transitBonuses[stop.Kind]
		if !ok || stopCounts[stop.Kind] >= bonus.maxCount {
			continue
		}

		delta := decayed(bonus.atZero, stop.DistanceM, ConvenienceRadiusM)
		if delta < 0.05 {
			continue
		}

		stopCounts[stop.Kind]++
		score += delta
		factors = appendFactor(factors, value.ConcernConvenience, stop.Kind, stop.Name, stop.DistanceM, delta)
	}

	return lo.Clamp(score, 0, 100), factors
}

func zoningScore(env entity.Environment) (float64, []value.Factor) {
	if env.IsDegraded(value.ConcernZoning) {
		return NeutralSubScore, nil
	}

	score := 100.0

	var factors []value.Factor

	for _, hazard := range env.Zoning {
		base, ok := zoningPenalties[hazard.Kind]
		if !ok {
			continue
		}

		penalty := decayed(base, hazard.DistanceM, ZoningRadiusM)
		if penalty < 0.05 {
			continue
		}

		score -= penalty
		factors = appendFactor(factors, value.ConcernZoning, hazard.Kind, hazard.Name, hazard.DistanceM, -penalty)
	}

	return lo.Clamp(score, 0, 100), factors
}

// decayed scales base linearly from full strength at distance 0 down to zero
// at the radius edge.
func decayed(base, distanceM, radiusM float64) float64 {
	if distanceM < 0 || distanceM >= radiusM {
		return 0
	}

	return base * (1 - distanceM/radiusM)
}

func appendFactor(factors []value.Factor, concern value.Concern, kind, name string, distanceM, delta float64) []value.Factor {
	return append(factors, value.Factor{
		Concern:   concern,
		Kind:      kind,
		Name:      name,
		DistanceM: round1(distanceM),
		Delta:     round1(delta),
	})
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
