// Package pull drives batch extraction: it walks cities, forces, and
// months, calls the API extractors, writes CSV files, and emits the
// import manifest and a metadata sidecar describing the run.
package pull

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samshapley/bobby/internal/csvio"
	"github.com/samshapley/bobby/internal/importer"
	"github.com/samshapley/bobby/internal/police"
)

// City is a pull target with a representative point.
type City struct {
	Name string
	Lat  float64
	Lng  float64
}

// DefaultCities are the major UK cities pulled when no filter is given.
func DefaultCities() []City {
	return []City{
		{"london", 51.5074, -0.1278},
		{"manchester", 53.4808, -2.2426},
		{"birmingham", 52.4862, -1.8904},
		{"leeds", 53.8008, -1.5491},
		{"glasgow", 55.8642, -4.2518},
		{"liverpool", 53.4084, -2.9916},
		{"newcastle", 54.9783, -1.6178},
		{"cardiff", 51.4816, -3.1791},
	}
}

// FilterCities narrows cities to the comma-separated names in filter.
// An empty filter, or one matching nothing, keeps the full list.
func FilterCities(cities []City, filter string) []City {
	if filter == "" {
		return cities
	}
	wanted := make(map[string]bool)
	for _, name := range strings.Split(filter, ",") {
		wanted[strings.ToLower(strings.TrimSpace(name))] = true
	}
	var out []City
	for _, city := range cities {
		if wanted[strings.ToLower(city.Name)] {
			out = append(out, city)
		}
	}
	if len(out) == 0 {
		return cities
	}
	return out
}

// Options selects what one run extracts.
type Options struct {
	OutputDir  string
	Cities     string // comma-separated filter, empty for all
	Historical int    // months to pull; <=1 means latest only

	Crimes        bool
	Forces        bool
	Neighborhoods bool
	Stops         bool

	CrimesNoLocation bool
	CrimesAtLocation bool

	StopsNoLocation bool
	StopsByArea     bool
	StopsAtLocation bool

	// NeighborhoodDepth is how many neighbourhoods per force get
	// detailed pulls; 0 means all.
	NeighborhoodDepth      int
	NeighborhoodBoundaries bool
	NeighborhoodTeams      bool
	NeighborhoodEvents     bool
	NeighborhoodPriorities bool

	SaveMetadata bool
}

// EverythingOptions enables every data type and collection option.
func EverythingOptions(outputDir string) Options {
	return Options{
		OutputDir:              outputDir,
		Crimes:                 true,
		Forces:                 true,
		Neighborhoods:          true,
		Stops:                  true,
		CrimesNoLocation:       true,
		CrimesAtLocation:       true,
		StopsNoLocation:        true,
		StopsByArea:            true,
		StopsAtLocation:        true,
		NeighborhoodDepth:      2,
		NeighborhoodBoundaries: true,
		NeighborhoodTeams:      true,
		NeighborhoodEvents:     true,
		NeighborhoodPriorities: true,
		SaveMetadata:           true,
	}
}

// Result is what one run produced.
type Result struct {
	RunID    string
	Files    []string
	Manifest *importer.Manifest
	Dates    []string
	Cities   []string
}

// Runner executes pulls against one API client.
type Runner struct {
	client *police.Client
	logger *zap.Logger
}

// NewRunner returns a Runner.
func NewRunner(client *police.Client, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{client: client, logger: logger}
}

// Run performs one extraction run. Per-resource failures are logged
// and skipped; the run keeps going, matching the importer's
// best-effort batch posture.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{
		RunID:    uuid.NewString(),
		Manifest: importer.NewManifest(""),
	}
	result.Manifest.RunID = result.RunID

	dates := []string{r.client.LatestDate(ctx)}
	if opts.Historical > 1 {
		if all, err := r.client.AvailableDates(ctx); err == nil && len(all) > 0 {
			if len(all) > opts.Historical {
				all = all[:opts.Historical]
			}
			dates = all
		}
	}
	result.Dates = dates

	cities := FilterCities(DefaultCities(), opts.Cities)
	for _, c := range cities {
		result.Cities = append(result.Cities, c.Name)
	}
	r.logger.Info("starting extraction run",
		zap.String("run_id", result.RunID),
		zap.Strings("dates", dates),
		zap.Strings("cities", result.Cities))

	var forces []map[string]any
	if opts.Forces || opts.CrimesNoLocation || opts.Stops || opts.StopsNoLocation {
		var err error
		forces, err = r.client.Forces().List(ctx)
		if err != nil {
			r.logger.Error("failed to list forces", zap.Error(err))
			forces = nil
		}
	}

	for _, date := range dates {
		if opts.Crimes {
			r.pullCrimes(ctx, opts, cities, forces, date, result)
		}
		if opts.Stops {
			r.pullStops(ctx, opts, cities, forces, date, result)
		}
	}
	if opts.Forces {
		r.pullForces(ctx, opts, forces, result)
	}
	if opts.Neighborhoods {
		r.pullNeighborhoods(ctx, opts, forces, result)
	}

	if _, err := result.Manifest.Save(opts.OutputDir); err != nil {
		r.logger.Error("failed to write import manifest", zap.Error(err))
	}
	if opts.SaveMetadata {
		if err := r.saveMetadata(opts, result); err != nil {
			r.logger.Error("failed to write extraction metadata", zap.Error(err))
		}
	}

	r.logger.Info("extraction run finished",
		zap.String("run_id", result.RunID),
		zap.Int("files", len(result.Files)))
	return result, nil
}

// save writes records to a CSV and records the manifest entry. Errors
// are logged, not returned; a failed resource never stops the run.
func (r *Runner) save(opts Options, result *Result, records []map[string]any, stem string, entry importer.ManifestEntry) {
	if len(records) == 0 {
		r.logger.Debug("no records to save", zap.String("file", stem))
		return
	}
	path, err := csvio.Save(records, stem+".csv", opts.OutputDir, true, false)
	if err != nil {
		r.logger.Error("failed to write csv", zap.String("file", stem), zap.Error(err))
		return
	}
	result.Files = append(result.Files, path)
	result.Manifest.Add(path, entry)
	r.logger.Info("saved csv", zap.String("path", path), zap.Int("rows", len(records)))
}

func (r *Runner) pullCrimes(ctx context.Context, opts Options, cities []City, forces []map[string]any, date string, result *Result) {
	crimes := r.client.Crimes()

	for _, city := range cities {
		data, err := crimes.StreetCrimes(ctx, city.Lat, city.Lng, "", date, "")
		if err != nil {
			r.logger.Error("street crimes pull failed",
				zap.String("city", city.Name), zap.Error(err))
		} else {
			r.save(opts, result, data, fmt.Sprintf("crimes_%s_%s", city.Name, date),
				importer.ManifestEntry{Table: "crimes", Metadata: map[string]string{
					"city": city.Name, "data_date": date, "location_type": "street",
				}})
		}

		outcomes, err := crimes.OutcomesAtLocation(ctx, city.Lat, city.Lng, "", date)
		if err != nil {
			r.logger.Error("outcomes pull failed",
				zap.String("city", city.Name), zap.Error(err))
		} else {
			r.save(opts, result, outcomes, fmt.Sprintf("outcomes_%s_%s", city.Name, date),
				importer.ManifestEntry{Table: "outcomes", Metadata: map[string]string{
					"city": city.Name, "data_date": date,
				}})
		}

		if opts.CrimesAtLocation {
			atLoc, err := crimes.CrimesAtLocation(ctx, "", city.Lat, city.Lng, date)
			if err != nil {
				r.logger.Error("crimes at location pull failed",
					zap.String("city", city.Name), zap.Error(err))
			} else {
				r.save(opts, result, atLoc, fmt.Sprintf("crimes_at_location_%s_%s", city.Name, date),
					importer.ManifestEntry{Table: "crimes", Metadata: map[string]string{
						"city": city.Name, "data_date": date, "location_type": "specific",
					}})
			}
		}
	}

	if opts.CrimesNoLocation {
		for _, force := range forces {
			forceID, _ := force["id"].(string)
			if forceID == "" {
				continue
			}
			data, err := crimes.CrimesNoLocation(ctx, forceID, "", date)
			if err != nil {
				r.logger.Error("crimes no location pull failed",
					zap.String("force", forceID), zap.Error(err))
				continue
			}
			r.save(opts, result, data, fmt.Sprintf("crimes_no_location_%s_%s", forceID, date),
				importer.ManifestEntry{Table: "crimes", Metadata: map[string]string{
					"force_id": forceID, "data_date": date, "location_type": "none",
				}})
		}
	}

	categories, err := crimes.Categories(ctx, date)
	if err != nil {
		r.logger.Error("crime categories pull failed", zap.Error(err))
	} else {
		r.save(opts, result, categories, "crime_categories_"+date,
			importer.ManifestEntry{Table: "crime_categories"})
	}

	lastUpdated, err := crimes.LastUpdated(ctx)
	if err != nil {
		r.logger.Error("crime last updated pull failed", zap.Error(err))
	} else if len(lastUpdated) > 0 {
		r.save(opts, result, []map[string]any{lastUpdated}, "crime_last_updated_"+date,
			importer.ManifestEntry{Table: "data_updates", Metadata: map[string]string{
				"data_type": "crime", "data_date": date,
			}})
	}
}

func (r *Runner) pullStops(ctx context.Context, opts Options, cities []City, forces []map[string]any, date string, result *Result) {
	stops := r.client.Stops()

	for _, force := range forces {
		forceID, _ := force["id"].(string)
		if forceID == "" {
			continue
		}
		data, err := stops.StopsByForce(ctx, forceID, date)
		if err != nil {
			r.logger.Error("stops by force pull failed",
				zap.String("force", forceID), zap.Error(err))
		} else {
			// stops_force names defeat the filename patterns; the
			// manifest entry is what routes them.
			r.save(opts, result, data, fmt.Sprintf("stops_force_%s_%s", forceID, date),
				importer.ManifestEntry{Table: "stops", Metadata: map[string]string{
					"force_id": forceID, "data_date": date, "stop_type": "standard",
				}})
		}

		if opts.StopsNoLocation {
			noLoc, err := stops.StopsNoLocation(ctx, forceID, date)
			if err != nil {
				r.logger.Error("stops no location pull failed",
					zap.String("force", forceID), zap.Error(err))
			} else {
				r.save(opts, result, noLoc, fmt.Sprintf("stops_no_location_%s_%s", forceID, date),
					importer.ManifestEntry{Table: "stops", Metadata: map[string]string{
						"force_id": forceID, "data_date": date, "stop_type": "no_location",
					}})
			}
		}
	}

	for _, city := range cities {
		if opts.StopsByArea {
			data, err := stops.StreetStops(ctx, city.Lat, city.Lng, "", date)
			if err != nil {
				r.logger.Error("stops by area pull failed",
					zap.String("city", city.Name), zap.Error(err))
			} else {
				r.save(opts, result, data, fmt.Sprintf("stops_area_%s_%s", city.Name, date),
					importer.ManifestEntry{Table: "stops", Metadata: map[string]string{
						"city": city.Name, "data_date": date, "stop_type": "area",
					}})
			}
		}
	}
}

func (r *Runner) pullForces(ctx context.Context, opts Options, forces []map[string]any, result *Result) {
	if len(forces) > 0 {
		// Appends rather than replaces: force_details files land in the
		// same table, and a replace would drop their rows and columns.
		r.save(opts, result, forces, "police_forces",
			importer.ManifestEntry{Table: "police_forces"})
	}

	api := r.client.Forces()
	for _, force := range forces {
		forceID, _ := force["id"].(string)
		if forceID == "" {
			continue
		}
		details, err := api.Details(ctx, forceID)
		if err != nil {
			r.logger.Error("force details pull failed",
				zap.String("force", forceID), zap.Error(err))
		} else if len(details) > 0 {
			r.save(opts, result, []map[string]any{details}, "force_details_"+forceID,
				importer.ManifestEntry{Table: "police_forces", Metadata: map[string]string{
					"force_id": forceID,
				}})
		}

		officers, err := api.SeniorOfficers(ctx, forceID)
		if err != nil {
			r.logger.Error("senior officers pull failed",
				zap.String("force", forceID), zap.Error(err))
		} else {
			r.save(opts, result, officers, "senior_officers_"+forceID,
				importer.ManifestEntry{Table: "senior_officers", Metadata: map[string]string{
					"force_id": forceID,
				}})
		}
	}
}

func (r *Runner) pullNeighborhoods(ctx context.Context, opts Options, forces []map[string]any, result *Result) {
	api := r.client.Neighbourhoods()

	for _, force := range forces {
		forceID, _ := force["id"].(string)
		if forceID == "" {
			continue
		}
		hoods, err := api.List(ctx, forceID)
		if err != nil {
			r.logger.Error("neighbourhood list pull failed",
				zap.String("force", forceID), zap.Error(err))
			continue
		}
		r.save(opts, result, hoods, "neighborhoods_"+forceID,
			importer.ManifestEntry{Table: "neighborhoods", Metadata: map[string]string{
				"force_id": forceID,
			}})

		detailed := hoods
		if opts.NeighborhoodDepth > 0 && len(detailed) > opts.NeighborhoodDepth {
			detailed = detailed[:opts.NeighborhoodDepth]
		}
		for _, hood := range detailed {
			hoodID, _ := hood["id"].(string)
			if hoodID == "" {
				continue
			}
			r.pullNeighborhoodDetail(ctx, opts, api, forceID, hoodID, result)
		}
	}
}

func (r *Runner) pullNeighborhoodDetail(ctx context.Context, opts Options, api *police.NeighbourhoodsAPI, forceID, hoodID string, result *Result) {
	meta := map[string]string{"force_id": forceID, "neighborhood_id": hoodID}

	details, err := api.Details(ctx, forceID, hoodID)
	if err != nil {
		r.logger.Error("neighbourhood details pull failed",
			zap.String("force", forceID), zap.String("neighbourhood", hoodID), zap.Error(err))
	} else if len(details) > 0 {
		r.save(opts, result, []map[string]any{details},
			fmt.Sprintf("neighborhood_details_%s_%s", forceID, hoodID),
			importer.ManifestEntry{Table: "neighborhoods", Metadata: meta})
	}

	type detailPull struct {
		enabled bool
		stem    string
		table   string
		fetch   func() ([]map[string]any, error)
	}
	pulls := []detailPull{
		{opts.NeighborhoodBoundaries, "neighborhood_boundary", "neighborhood_boundaries",
			func() ([]map[string]any, error) { return api.Boundary(ctx, forceID, hoodID) }},
		{opts.NeighborhoodTeams, "neighborhood_team", "neighborhood_teams",
			func() ([]map[string]any, error) { return api.Team(ctx, forceID, hoodID) }},
		{opts.NeighborhoodEvents, "neighborhood_events", "neighborhood_events",
			func() ([]map[string]any, error) { return api.Events(ctx, forceID, hoodID) }},
		{opts.NeighborhoodPriorities, "neighborhood_priorities", "neighborhood_priorities",
			func() ([]map[string]any, error) { return api.Priorities(ctx, forceID, hoodID) }},
	}
	for _, p := range pulls {
		if !p.enabled {
			continue
		}
		data, err := p.fetch()
		if err != nil {
			r.logger.Error("neighbourhood detail pull failed",
				zap.String("kind", p.stem),
				zap.String("force", forceID),
				zap.String("neighbourhood", hoodID),
				zap.Error(err))
			continue
		}
		r.save(opts, result, data, fmt.Sprintf("%s_%s_%s", p.stem, forceID, hoodID),
			importer.ManifestEntry{Table: p.table, Metadata: meta})
	}
}
