// Package importer loads extracted CSV files into the consolidated
// SQLite schema. The target table and metadata columns for each file
// come either from an import manifest written by the pull layer or,
// for files without a manifest entry, from the filename itself.
package importer

import (
	"regexp"
	"strings"
)

// Classification describes where one CSV file's rows go.
type Classification struct {
	// Table is the destination table.
	Table string
	// Metadata columns injected into every row (city, data_date,
	// force_id, neighborhood_id, location_type, stop_type).
	Metadata map[string]string
	// Replace drops and recreates the table from the CSV header
	// instead of appending. Only the slugified fallback does this.
	Replace bool
	// PerRowJSON inserts each row into data_updates with the row
	// serialized as JSON instead of mapping columns.
	PerRowJSON bool
}

var (
	// cityPattern: {data_type}_{city}_{YYYY-MM}, e.g. crimes_london_2023-01.
	cityPattern = regexp.MustCompile(`^(\w+)_([a-z]+)_(\d{4}-\d{2})$`)
	// forcePattern: {data_type}_{force_id}, e.g. neighborhoods_metropolitan.
	forcePattern = regexp.MustCompile(`^(\w+)_([a-z_]+)$`)
	// detailedPattern: {t1}_{t2}_{force_id}_{neighborhood_id},
	// e.g. neighborhood_boundary_metropolitan_E05000001.
	detailedPattern = regexp.MustCompile(`^(\w+)_(\w+)_([a-z_]+)_([A-Za-z0-9]+)$`)
	// monthPattern recovers a data date embedded anywhere in a name.
	monthPattern = regexp.MustCompile(`\d{4}-\d{2}`)

	slugCleaner = regexp.MustCompile(`[^a-z0-9_]`)
)

// cityRoutes maps the data_type captured by cityPattern to its table
// and fixed metadata.
var cityRoutes = map[string]struct {
	table string
	key   string // extra metadata column name, "" for none
	value string
}{
	"crimes":             {"crimes", "location_type", "street"},
	"crimes_at_location": {"crimes", "location_type", "specific"},
	"outcomes":           {"outcomes", "", ""},
	"stops":              {"stops", "stop_type", "standard"},
	"stops_area":         {"stops", "stop_type", "area"},
	"stops_at_location":  {"stops", "stop_type", "location"},
}

// forceRoutes maps the data_type captured by forcePattern.
var forceRoutes = map[string]string{
	"force_details":   "police_forces",
	"senior_officers": "senior_officers",
	"neighborhoods":   "neighborhoods",
}

// detailedRoutes maps the combined {t1}_{t2} captured by
// detailedPattern.
var detailedRoutes = map[string]string{
	"neighborhood_details":    "neighborhoods",
	"neighborhood_boundary":   "neighborhood_boundaries",
	"neighborhood_team":       "neighborhood_teams",
	"neighborhood_events":     "neighborhood_events",
	"neighborhood_priorities": "neighborhood_priorities",
}

// Classify decides the destination for a CSV base filename (extension
// already stripped). Patterns are tried in order, but a pattern only
// claims a name when its captured data_type routes somewhere in that
// pattern's family; otherwise the next pattern gets a chance. Names
// nothing claims fall back to a slugified standalone table with
// replace semantics.
func Classify(baseName string) Classification {
	if m := cityPattern.FindStringSubmatch(baseName); m != nil {
		dataType, city, date := m[1], m[2], m[3]
		if route, ok := cityRoutes[dataType]; ok {
			meta := map[string]string{"city": city, "data_date": date}
			if route.key != "" {
				meta[route.key] = route.value
			}
			return Classification{Table: route.table, Metadata: meta}
		}
		// no-location extracts carry a force id where a city would
		// be, and keep their date suffix.
		switch dataType {
		case "crimes_no_location":
			return Classification{Table: "crimes", Metadata: map[string]string{
				"force_id": city, "data_date": date, "location_type": "none",
			}}
		case "stops_no_location":
			return Classification{Table: "stops", Metadata: map[string]string{
				"force_id": city, "data_date": date, "stop_type": "no_location",
			}}
		}
	}

	if m := forcePattern.FindStringSubmatch(baseName); m != nil {
		dataType, forceID := m[1], m[2]
		if table, ok := forceRoutes[dataType]; ok {
			return Classification{Table: table, Metadata: map[string]string{"force_id": forceID}}
		}
		switch dataType {
		case "crimes_no_location", "stops_no_location":
			meta := map[string]string{"force_id": forceID}
			if date := monthPattern.FindString(baseName); date != "" {
				meta["data_date"] = date
			}
			if dataType == "crimes_no_location" {
				meta["location_type"] = "none"
				return Classification{Table: "crimes", Metadata: meta}
			}
			meta["stop_type"] = "no_location"
			return Classification{Table: "stops", Metadata: meta}
		}
	}

	if m := detailedPattern.FindStringSubmatch(baseName); m != nil {
		combined := m[1] + "_" + m[2]
		if table, ok := detailedRoutes[combined]; ok {
			return Classification{Table: table, Metadata: map[string]string{
				"force_id": m[3], "neighborhood_id": m[4],
			}}
		}
	}

	if strings.Contains(baseName, "crime_categories") {
		return Classification{Table: "crime_categories", Metadata: map[string]string{}}
	}
	if strings.Contains(baseName, "crime_last_updated") {
		meta := map[string]string{"data_type": "crime"}
		if date := monthPattern.FindString(baseName); date != "" {
			meta["data_date"] = date
		}
		return Classification{Table: "data_updates", Metadata: meta, PerRowJSON: true}
	}

	return Classification{Table: Slugify(baseName), Metadata: map[string]string{}, Replace: true}
}

// Slugify normalizes an arbitrary base filename into a safe SQLite
// table name: lowercase, hyphens and spaces to underscores, anything
// else dropped.
func Slugify(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == '-' || r == ' ':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return slugCleaner.ReplaceAllString(string(out), "")
}
