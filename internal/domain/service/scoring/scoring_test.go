package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/service/scoring"
	"tranquiltaiwan/internal/domain/value"
	"tranquiltaiwan/pkg/tests"
)

func TestCompute_NeutralDefaults(t *testing.T) {
	rq := require.New(t)

	// No data at all except a dead air feed: quiet (100), base safety (60),
	// nothing convenient (0), no hazards (100), neutral air (50).
	score := scoring.Compute(entity.Environment{
		Degraded: []value.Concern{value.ConcernAir},
	})

	rq.InDelta(100.0, score.Breakdown.SubScores.Noise, 0.001)
	rq.InDelta(50.0, score.Breakdown.SubScores.Air, 0.001)
	rq.InDelta(60.0, score.Breakdown.SubScores.Safety, 0.001)
	rq.InDelta(0.0, score.Breakdown.SubScores.Convenience, 0.001)
	rq.InDelta(100.0, score.Breakdown.SubScores.Zoning, 0.001)
	rq.InDelta(64.5, score.Total, 0.001)
}

func TestCompute_AllProvidersDegraded(t *testing.T) {
	rq := require.New(t)

	score := scoring.Compute(entity.Environment{Degraded: value.Concerns()})

	rq.InDelta(50.0, score.Total, 0.001)
	rq.Empty(score.Breakdown.Factors)
	rq.Len(score.Breakdown.Degraded, 5)
}

func TestCompute_TypicalUrbanAddress(t *testing.T) {
	rq := require.New(t)

	env := entity.Environment{
		Noise: []entity.NoiseSource{
			{Kind: "motorway", Name: "建國高架道路", DistanceM: 150},
		},
		Air: &entity.AirQuality{AQI: 63, Station: "古亭", StationDistanceM: 1800},
		Safety: []entity.SafetyAmenity{
			{Kind: "police", Name: "大安分局", DistanceM: 400},
		},
		Convenience: []entity.ConvenienceAmenity{
			{Kind: "convenience_store", Name: "7-Eleven", DistanceM: 80},
			{Kind: "convenience_store", Name: "全家", DistanceM: 210},
		},
		Transit: []entity.TransitStop{
			{Kind: "metro", Name: "大安森林公園", DistanceM: 250},
		},
		Zoning: []entity.ZoneHazard{
			{Kind: "industrial", DistanceM: 500},
		},
	}

	score := scoring.Compute(env)

	rq.InDelta(85.0, score.Breakdown.SubScores.Noise, 0.001)
	rq.InDelta(74.8, score.Breakdown.SubScores.Air, 0.001)
	rq.InDelta(67.5, score.Breakdown.SubScores.Safety, 0.001)
	rq.InDelta(34.0, score.Breakdown.SubScores.Convenience, 0.001)
	rq.InDelta(87.5, score.Breakdown.SubScores.Zoning, 0.001)
	rq.InDelta(71.55, score.Total, 0.06)

	// Every contribution is explained.
	rq.Len(score.Breakdown.Factors, 7)
	rq.Empty(score.Breakdown.Degraded)
}

func TestCompute_BoundedUnderExtremeInput(t *testing.T) {
	rq := require.New(t)

	env := entity.Environment{
		Air: &entity.AirQuality{AQI: 500, Station: "somewhere"},
	}

	for range 30 {
		env.Noise = append(env.Noise, entity.NoiseSource{Kind: "motorway", DistanceM: 0})
		env.Safety = append(env.Safety, entity.SafetyAmenity{Kind: "police", DistanceM: 0})
		env.Convenience = append(env.Convenience, entity.ConvenienceAmenity{Kind: "convenience_store", DistanceM: 10})
		env.Zoning = append(env.Zoning, entity.ZoneHazard{Kind: "landfill", DistanceM: 0})
	}

	score := scoring.Compute(env)

	rq.GreaterOrEqual(score.Total, 0.0)
	rq.LessOrEqual(score.Total, 100.0)
	rq.InDelta(0.0, score.Breakdown.SubScores.Noise, 0.001)
	rq.InDelta(0.0, score.Breakdown.SubScores.Air, 0.001)
	rq.InDelta(100.0, score.Breakdown.SubScores.Safety, 0.001)
	rq.InDelta(0.0, score.Breakdown.SubScores.Zoning, 0.001)
}

func TestCompute_AQIBands(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		aqi  int
		want float64
	}{
		{0, 100},
		{25, 90},
		{50, 80},
		{75, 70},
		{100, 60},
		{125, 50},
		{150, 40},
		{200, 20},
		{250, 12.5},
		{300, 5},
		{301, 0},
		{999, 0},
	}

	for _, tc := range testCases {
		score := scoring.Compute(entity.Environment{
			Air: &entity.AirQuality{AQI: tc.aqi, Station: "test"},
		})
		rq.InDelta(tc.want, score.Breakdown.SubScores.Air, 0.001, "aqi %d", tc.aqi)
	}
}

func TestCompute_CloserNoiseHurtsMore(t *testing.T) {
	rq := require.New(t)

	near := scoring.Compute(entity.Environment{
		Noise: []entity.NoiseSource{{Kind: "railway", DistanceM: 50}},
	})
	far := scoring.Compute(entity.Environment{
		Noise: []entity.NoiseSource{{Kind: "railway", DistanceM: 250}},
	})

	rq.Less(near.Breakdown.SubScores.Noise, far.Breakdown.SubScores.Noise)
}

func TestCompute_ConvenienceCountCaps(t *testing.T) {
	rq := require.New(t)

	env := entity.Environment{}
	for range 5 {
		env.Convenience = append(env.Convenience, entity.ConvenienceAmenity{
			Kind:      "convenience_store",
			DistanceM: 100,
		})
	}

	score := scoring.Compute(env)

	// Only the first three stores count.
	rq.InDelta(36.0, score.Breakdown.SubScores.Convenience, 0.001)
	rq.Len(score.Breakdown.Factors, 3)
}

func TestCompute_SourceAtRadiusEdgeIgnored(t *testing.T) {
	rq := require.New(t)

	score := scoring.Compute(entity.Environment{
		Zoning: []entity.ZoneHazard{{Kind: "incinerator", DistanceM: scoring.ZoningRadiusM}},
	})

	rq.InDelta(100.0, score.Breakdown.SubScores.Zoning, 0.001)
	rq.Empty(score.Breakdown.Factors)
}

func TestCompute_DegradedConcernContributesNoFactors(t *testing.T) {
	rq := require.New(t)

	score := scoring.Compute(entity.Environment{
		Noise:    []entity.NoiseSource{{Kind: "motorway", DistanceM: 10}},
		Degraded: []value.Concern{value.ConcernNoise},
	})

	rq.InDelta(scoring.NeutralSubScore, score.Breakdown.SubScores.Noise, 0.001)
	rq.Empty(score.Breakdown.Factors)
}

func TestCompute_UnknownKindsIgnored(t *testing.T) {
	rq := require.New(t)

	score := scoring.Compute(entity.Environment{
		Noise:  []entity.NoiseSource{{Kind: "library", DistanceM: 10}},
		Zoning: []entity.ZoneHazard{{Kind: "park", DistanceM: 10}},
	})

	rq.InDelta(100.0, score.Breakdown.SubScores.Noise, 0.001)
	rq.InDelta(100.0, score.Breakdown.SubScores.Zoning, 0.001)
	rq.Empty(score.Breakdown.Factors)
}

func TestCompute_NightlifeDensityPenaltyCapped(t *testing.T) {
	rq := require.New(t)

	env := entity.Environment{}
	for range 8 {
		env.Safety = append(env.Safety, entity.SafetyAmenity{Kind: "bar", DistanceM: 300})
	}

	score := scoring.Compute(env)

	// 8 bars at 2 points each would be 16; capped at 10 below the base 60.
	rq.InDelta(50.0, score.Breakdown.SubScores.Safety, 0.001)
}

func TestCompute_RandomEnvironmentsStayBounded(t *testing.T) {
	rq := require.New(t)

	random := tests.NewRandomizer()

	noiseKinds := []string{"motorway", "primary", "secondary", "railway", "nightclub", "karaoke", "temple", "market"}
	safetyKinds := []string{"police", "fire_station", "hospital", "bar", "nightclub"}
	convenienceKinds := []string{"convenience_store", "supermarket", "pharmacy", "restaurant"}
	transitKinds := []string{"metro", "bus", "train"}
	zoningKinds := []string{"industrial", "landfill", "gas_station", "funeral_hall"}

	pick := func(kinds []string) string {
		return kinds[int(random.Float64()*float64(len(kinds)))]
	}
	count := func(upTo int) int {
		return int(random.Float64() * float64(upTo+1))
	}

	for range 300 {
		env := entity.Environment{}

		for range count(10) {
			env.Noise = append(env.Noise, entity.NoiseSource{Kind: pick(noiseKinds), DistanceM: random.Float64() * 2000})
		}
		for range count(10) {
			env.Safety = append(env.Safety, entity.SafetyAmenity{Kind: pick(safetyKinds), DistanceM: random.Float64() * 2000})
		}
		for range count(15) {
			env.Convenience = append(env.Convenience, entity.ConvenienceAmenity{Kind: pick(convenienceKinds), DistanceM: random.Float64() * 2000})
		}
		for range count(10) {
			env.Transit = append(env.Transit, entity.TransitStop{Kind: pick(transitKinds), DistanceM: random.Float64() * 2000})
		}
		for range count(5) {
			env.Zoning = append(env.Zoning, entity.ZoneHazard{Kind: pick(zoningKinds), DistanceM: random.Float64() * 2000})
		}
		if random.Bool() {
			env.Air = &entity.AirQuality{AQI: int(random.Float64() * 500), Station: "測站", StationDistanceM: random.Float64() * 5000}
		} else {
			env.Degraded = append(env.Degraded, value.ConcernAir)
		}

		score := scoring.Compute(env)

		rq.GreaterOrEqual(score.Total, 0.0)
		rq.LessOrEqual(score.Total, 100.0)

		for _, sub := range []float64{
			score.Breakdown.SubScores.Noise,
			score.Breakdown.SubScores.Air,
			score.Breakdown.SubScores.Safety,
			score.Breakdown.SubScores.Convenience,
			score.Breakdown.SubScores.Zoning,
		} {
			rq.GreaterOrEqual(sub, 0.0)
			rq.LessOrEqual(sub, 100.0)
		}
	}
}
