package overpass

import (
	"fmt"
	"strings"

	"tranquiltaiwan/internal/domain/service/scoring"
	"tranquiltaiwan/internal/domain/value"
)

// Query builders for the Overpass QL API. One query per concern, each a
// union of nwr (node/way/relation) filters around the target coordinate.
// Radii match the scoring decay radii so a fetched feature always lands
// inside the scored range.

func noiseQuery(loc value.Coordinate) string {
	return buildQuery(loc, scoring.NoiseRadiusM,
		`[highway~"^(motorway|trunk|primary|secondary)$"]`,
		`[railway~"^(rail|light_rail)$"]`,
		`[aeroway=aerodrome]`,
		`[amenity~"^(bar|pub|nightclub|karaoke_box)$"]`,
		`[amenity~"^(place_of_worship|marketplace)$"]`,
		`[landuse~"^(construction|industrial)$"]`,
	)
}

func safetyQuery(loc value.Coordinate) string {
	return buildQuery(loc, scoring.SafetyRadiusM,
		`[amenity~"^(police|fire_station|hospital|clinic)$"]`,
		`[amenity~"^(bar|pub|nightclub|karaoke_box)$"]`,
	)
}

func convenienceQuery(loc value.Coordinate) string {
	return buildQuery(loc, scoring.ConvenienceRadiusM,
		`[shop~"^(convenience|supermarket)$"]`,
		`[amenity~"^(marketplace|pharmacy|school|restaurant)$"]`,
		`[leisure=park]`,
	)
}

func transitQuery(loc value.Coordinate) string {
	return buildQuery(loc, scoring.ConvenienceRadiusM,
		`[railway=station]`,
		`[amenity=bicycle_rental]`,
		`[highway=bus_stop]`,
	)
}

func zoningQuery(loc value.Coordinate) string {
	return buildQuery(loc, scoring.ZoningRadiusM,
		`[landuse~"^(industrial|landfill|cemetery|military)$"]`,
		`[amenity~"^(grave_yard|crematorium)$"]`,
		`[man_made~"^(incinerator|gasometer|storage_tank)$"]`,
		`[power=substation]`,
		`[aeroway=aerodrome]`,
	)
}

func buildQuery(loc value.Coordinate, radiusM float64, filters ...string) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")

	for _, filter := range filters {
		fmt.Fprintf(&b, "  nwr(around:%.0f,%.6f,%.6f)%s;\n", radiusM, loc.Lat, loc.Lon, filter)
	}

	b.WriteString(");\nout center;")

	return b.String()
}

// Tag classification: OSM tags to the kind vocabulary the scoring tables
// use. Returns ok=false for elements that matched a query but carry no
// scorable tag (e.g. a residential road sharing a relation).

func noiseKind(tags map[string]string) (string, bool) {
	switch tags["highway"] {
	case "motorway", "trunk", "primary", "secondary":
		return tags["highway"], true
	}

	if tags["railway"] == "rail" || tags["railway"] == "light_rail" {
		return "railway", true
	}

	if tags["aeroway"] == "aerodrome" {
		return "airfield", true
	}

	switch tags["amenity"] {
	case "bar", "pub", "nightclub":
		return tags["amenity"], true
	case "karaoke_box":
		return "karaoke", true
	case "place_of_worship":
		return "temple", true
	case "marketplace":
		return "market", true
	}

	switch tags["landuse"] {
	case "construction":
		return "construction", true
	case "industrial":
		return "industrial", true
	}

	return "", false
}

func safetyKind(tags map[string]string) (string, bool) {
	switch tags["amenity"] {
	case "police", "fire_station", "hospital", "clinic":
		return tags["amenity"], true
	case "bar", "pub", "nightclub":
		return tags["amenity"], true
	case "karaoke_box":
		return "karaoke", true
	}

	return "", false
}

func convenienceKind(tags map[string]string) (string, bool) {
	switch tags["shop"] {
	case "convenience":
		return "convenience_store", true
	case "supermarket":
		return "supermarket", true
	}

	switch tags["amenity"] {
	case "marketplace":
		return "market", true
	case "pharmacy", "school", "restaurant":
		return tags["amenity"], true
	}

	if tags["leisure"] == "park" {
		return "park", true
	}

	return "", false
}

func transitKind(tags map[string]string) (string, bool) {
	if tags["railway"] == "station" {
		return "metro", true
	}

	if tags["amenity"] == "bicycle_rental" {
		return "youbike", true
	}

	if tags["highway"] == "bus_stop" {
		return "bus", true
	}

	return "", false
}

func zoningKind(tags map[string]string) (string, bool) {
	switch tags["landuse"] {
	case "industrial", "landfill", "cemetery", "military":
		return tags["landuse"], true
	}

	switch tags["amenity"] {
	case "grave_yard":
		return "cemetery", true
	case "crematorium":
		return "funeral_hall", true
	}

	switch tags["man_made"] {
	case "incinerator":
		return "incinerator", true
	case "gasometer":
		return "gas_plant", true
	case "storage_tank":
		return "fuel_depot", true
	}

	if tags["power"] == "substation" {
		return "power_substation", true
	}

	if tags["aeroway"] == "aerodrome" {
		return "airport", true
	}

	return "", false
}
