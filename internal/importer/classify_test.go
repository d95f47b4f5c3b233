package importer

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		table    string
		metadata map[string]string
		replace  bool
		perRow   bool
	}{
		{
			name:  "StreetCrimes",
			base:  "crimes_london_2023-01",
			table: "crimes",
			metadata: map[string]string{
				"city": "london", "data_date": "2023-01", "location_type": "street",
			},
		},
		{
			name:  "CrimesAtLocation",
			base:  "crimes_at_location_london_2023-01",
			table: "crimes",
			metadata: map[string]string{
				"city": "london", "data_date": "2023-01", "location_type": "specific",
			},
		},
		{
			name:  "CrimesNoLocationWithDate",
			base:  "crimes_no_location_metropolitan_2023-01",
			table: "crimes",
			metadata: map[string]string{
				"force_id": "metropolitan", "data_date": "2023-01", "location_type": "none",
			},
		},
		{
			name:     "Outcomes",
			base:     "outcomes_manchester_2023-02",
			table:    "outcomes",
			metadata: map[string]string{"city": "manchester", "data_date": "2023-02"},
		},
		{
			name:  "Stops",
			base:  "stops_metropolitan_2023-01",
			table: "stops",
			metadata: map[string]string{
				"city": "metropolitan", "data_date": "2023-01", "stop_type": "standard",
			},
		},
		{
			name:  "StopsArea",
			base:  "stops_area_london_2023-01",
			table: "stops",
			metadata: map[string]string{
				"city": "london", "data_date": "2023-01", "stop_type": "area",
			},
		},
		{
			name:  "StopsAtLocation",
			base:  "stops_at_location_leeds_2023-03",
			table: "stops",
			metadata: map[string]string{
				"city": "leeds", "data_date": "2023-03", "stop_type": "location",
			},
		},
		{
			name:  "StopsNoLocationWithDate",
			base:  "stops_no_location_metropolitan_2023-01",
			table: "stops",
			metadata: map[string]string{
				"force_id": "metropolitan", "data_date": "2023-01", "stop_type": "no_location",
			},
		},
		{
			name:  "StopsNoLocationWithoutDate",
			base:  "stops_no_location_metropolitan",
			table: "stops",
			metadata: map[string]string{
				"force_id": "metropolitan", "stop_type": "no_location",
			},
		},
		{
			name:     "ForceDetails",
			base:     "force_details_metropolitan",
			table:    "police_forces",
			metadata: map[string]string{"force_id": "metropolitan"},
		},
		{
			name:     "SeniorOfficers",
			base:     "senior_officers_metropolitan",
			table:    "senior_officers",
			metadata: map[string]string{"force_id": "metropolitan"},
		},
		{
			name:     "Neighborhoods",
			base:     "neighborhoods_metropolitan",
			table:    "neighborhoods",
			metadata: map[string]string{"force_id": "metropolitan"},
		},
		{
			name:  "NeighborhoodDetails",
			base:  "neighborhood_details_metropolitan_E05000001",
			table: "neighborhoods",
			metadata: map[string]string{
				"force_id": "metropolitan", "neighborhood_id": "E05000001",
			},
		},
		{
			name:  "NeighborhoodBoundary",
			base:  "neighborhood_boundary_metropolitan_E05000001",
			table: "neighborhood_boundaries",
			metadata: map[string]string{
				"force_id": "metropolitan", "neighborhood_id": "E05000001",
			},
		},
		{
			name:  "NeighborhoodTeam",
			base:  "neighborhood_team_metropolitan_E05000001",
			table: "neighborhood_teams",
			metadata: map[string]string{
				"force_id": "metropolitan", "neighborhood_id": "E05000001",
			},
		},
		{
			name:  "NeighborhoodEvents",
			base:  "neighborhood_events_metropolitan_E05000001",
			table: "neighborhood_events",
			metadata: map[string]string{
				"force_id": "metropolitan", "neighborhood_id": "E05000001",
			},
		},
		{
			name:  "NeighborhoodPriorities",
			base:  "neighborhood_priorities_metropolitan_E05000001",
			table: "neighborhood_priorities",
			metadata: map[string]string{
				"force_id": "metropolitan", "neighborhood_id": "E05000001",
			},
		},
		{
			// Matches the city pattern shape but "crime" routes
			// nowhere, so the substring check must win.
			name:     "CrimeCategoriesWithDate",
			base:     "crime_categories_2023-01",
			table:    "crime_categories",
			metadata: map[string]string{},
		},
		{
			name:   "CrimeLastUpdated",
			base:   "crime_last_updated_2023-01",
			table:  "data_updates",
			perRow: true,
			metadata: map[string]string{
				"data_type": "crime", "data_date": "2023-01",
			},
		},
		{
			// "police" routes nowhere in the force family, so this
			// becomes a standalone replaced table.
			name:     "PoliceForcesFallback",
			base:     "police_forces",
			table:    "police_forces",
			metadata: map[string]string{},
			replace:  true,
		},
		{
			// Hyphenated force ids defeat every pattern.
			name:     "HyphenatedForceFallsThrough",
			base:     "senior_officers_west-midlands",
			table:    "senior_officers_west_midlands",
			metadata: map[string]string{},
			replace:  true,
		},
		{
			name:     "UnmatchedFile",
			base:     "weird_file",
			table:    "weird_file",
			metadata: map[string]string{},
			replace:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.base)
			if got.Table != tt.table {
				t.Errorf("Classify(%q).Table = %q, want %q", tt.base, got.Table, tt.table)
			}
			if got.Replace != tt.replace {
				t.Errorf("Classify(%q).Replace = %v, want %v", tt.base, got.Replace, tt.replace)
			}
			if got.PerRowJSON != tt.perRow {
				t.Errorf("Classify(%q).PerRowJSON = %v, want %v", tt.base, got.PerRowJSON, tt.perRow)
			}
			if len(got.Metadata) != len(tt.metadata) {
				t.Fatalf("Classify(%q).Metadata = %v, want %v", tt.base, got.Metadata, tt.metadata)
			}
			for k, v := range tt.metadata {
				if got.Metadata[k] != v {
					t.Errorf("Classify(%q).Metadata[%q] = %q, want %q", tt.base, k, got.Metadata[k], v)
				}
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"weird-file name", "weird_file_name"},
		{"Crimes_London", "crimes_london"},
		{"data.2023", "data2023"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
