package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samshapley/bobby/internal/pull"
)

var (
	extractCities     string
	extractHistorical int
	extractOutputDir  string
	extractAll        bool

	extractCrimes        bool
	extractForces        bool
	extractNeighborhoods bool
	extractStops         bool

	extractCrimesNoLocation bool
	extractCrimesAtLocation bool
	extractStopsNoLocation  bool
	extractStopsByArea      bool

	extractNeighborhoodDepth int
	extractNoMetadata        bool

	extractImport    bool
	extractReplaceDB bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Pull data from the UK Police API into CSV files",
	Long: `Pulls the selected data types for the chosen cities and months,
writes one CSV per resource into the staging directory, and records
an import manifest so every file lands in the right table later.

With no type flags, crimes, stops, and forces are pulled. --all
enables every data type including neighbourhood details.

Examples:
  bobby extract --cities london,manchester
  bobby extract --all --historical 6
  bobby extract --crimes --import`,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractCities, "cities", "", "Comma-separated city filter (default all)")
	f.IntVar(&extractHistorical, "historical", 1, "Number of months to pull, newest first")
	f.StringVar(&extractOutputDir, "output-dir", "", "CSV output directory (default from config)")
	f.BoolVar(&extractAll, "all", false, "Pull every data type")
	f.BoolVar(&extractCrimes, "crimes", false, "Pull street crimes and outcomes")
	f.BoolVar(&extractForces, "forces", false, "Pull forces and senior officers")
	f.BoolVar(&extractNeighborhoods, "neighborhoods", false, "Pull neighbourhood data")
	f.BoolVar(&extractStops, "stops", false, "Pull stop and search data")
	f.BoolVar(&extractCrimesNoLocation, "crimes-no-location", false, "Include crimes with no location, per force")
	f.BoolVar(&extractCrimesAtLocation, "crimes-at-location", false, "Include crimes at specific locations")
	f.BoolVar(&extractStopsNoLocation, "stops-no-location", false, "Include stops with no location, per force")
	f.BoolVar(&extractStopsByArea, "stops-by-area", false, "Include stops by city area")
	f.IntVar(&extractNeighborhoodDepth, "neighborhood-depth", 2, "Neighbourhoods per force to pull details for (0 = all)")
	f.BoolVar(&extractNoMetadata, "no-metadata", false, "Skip the extraction metadata sidecar")
	f.BoolVar(&extractImport, "import", false, "Import the pulled CSVs into the database afterwards")
	f.BoolVar(&extractReplaceDB, "replace-db", false, "Allow importing into an existing database")
}

func runExtract(cmd *cobra.Command, args []string) error {
	outputDir := extractOutputDir
	if outputDir == "" {
		outputDir = cfg.Database.CSVDir
	}

	var opts pull.Options
	if extractAll {
		opts = pull.EverythingOptions(outputDir)
	} else {
		opts = pull.Options{
			OutputDir:              outputDir,
			Crimes:                 extractCrimes,
			Forces:                 extractForces,
			Neighborhoods:          extractNeighborhoods,
			Stops:                  extractStops,
			CrimesNoLocation:       extractCrimesNoLocation,
			CrimesAtLocation:       extractCrimesAtLocation,
			StopsNoLocation:        extractStopsNoLocation,
			StopsByArea:            extractStopsByArea,
			NeighborhoodBoundaries: extractNeighborhoods,
			NeighborhoodTeams:      extractNeighborhoods,
			NeighborhoodEvents:     extractNeighborhoods,
			NeighborhoodPriorities: extractNeighborhoods,
			SaveMetadata:           true,
		}
		if !opts.Crimes && !opts.Forces && !opts.Neighborhoods && !opts.Stops {
			opts.Crimes = true
			opts.Forces = true
			opts.Stops = true
		}
	}
	opts.Cities = extractCities
	opts.Historical = extractHistorical
	opts.NeighborhoodDepth = extractNeighborhoodDepth
	if extractNoMetadata {
		opts.SaveMetadata = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pull.NewRunner(newPoliceClient(), logger)
	result, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Extracted %d files to %s (run %s, months: %v)\n",
		len(result.Files), outputDir, result.RunID, result.Dates)

	if !extractImport {
		return nil
	}
	return importDir(outputDir, extractReplaceDB, "")
}
