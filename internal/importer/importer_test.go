package importer

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samshapley/bobby/schema"
)

func writeCSV(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// fixtureFiles writes the five sample files the end-to-end scenario
// uses: crimes, outcomes, stops, police_forces, senior_officers.
func fixtureFiles(t *testing.T, dir string) []string {
	t.Helper()
	crimes := writeCSV(t, dir, "crimes_london_2023-01.csv",
		"category,location_latitude,location_longitude,location_street_id,location_street_name,month,outcome_status,outcome_status_category,outcome_status_date,persistent_id",
		"violent-crime,51.5074,-0.1278,123,Oxford St,2023-01,Under investigation,awaiting-court-result,2023-02,abc123",
		"burglary,51.5080,-0.1280,124,Regent St,2023-01,Complete,status-update-unavailable,2023-03,def456",
		"theft,51.5060,-0.1270,125,Bond St,2023-01,Under investigation,awaiting-court-result,2023-02,ghi789",
		"anti-social-behaviour,51.5090,-0.1290,126,Baker St,2023-01,,,,jkl012",
		"robbery,51.5100,-0.1310,127,Piccadilly,2023-01,Complete,status-update-unavailable,2023-03,mno345",
	)
	outcomes := writeCSV(t, dir, "outcomes_london_2023-01.csv",
		"category_code,category_name,crime_category,crime_location_street_id,crime_location_street_name,crime_month,date,person_id,crime_id",
		"charged,Offender charged,violent-crime,123,Oxford St,2023-01,2023-02-15,,abc123",
		"no-further-action,No further action,burglary,124,Regent St,2023-01,2023-02-20,,def456",
		"under-investigation,Under investigation,theft,125,Bond St,2023-01,2023-02-25,,ghi789",
		"charged,Offender charged,robbery,127,Piccadilly,2023-01,2023-03-01,,mno345",
		"no-further-action,No further action,anti-social-behaviour,126,Baker St,2023-01,2023-03-05,,jkl012",
	)
	stops := writeCSV(t, dir, "stops_metropolitan_2023-01.csv",
		"age_range,gender,officer_defined_ethnicity,object_of_search,datetime,location_street_id,outcome,type",
		"18-24,Male,White,Controlled drugs,2023-01-01T12:30:00,123,Arrest,Person search",
		"25-34,Female,Black,Stolen goods,2023-01-02T15:45:00,124,No further action,Person search",
		"over 34,Male,Asian,Weapons,2023-01-03T18:20:00,125,Warning,Person and Vehicle search",
		"18-24,Female,White,Controlled drugs,2023-01-04T09:15:00,126,Community resolution,Person search",
		"under 18,Male,Black,Controlled drugs,2023-01-05T22:10:00,127,Caution,Person search",
	)
	forces := writeCSV(t, dir, "police_forces.csv",
		"id,name,description,telephone,url",
		"metropolitan,Metropolitan Police,London police force,101,https://met.police.uk",
		"west-midlands,West Midlands Police,Midlands police force,101,https://west-midlands.police.uk",
		"greater-manchester,Greater Manchester Police,Manchester police force,101,https://gmp.police.uk",
	)
	officers := writeCSV(t, dir, "senior_officers_metropolitan.csv",
		"name,rank,bio,contact_details",
		"John Smith,Chief Constable,Career police officer,john.smith@met.police.uk",
		"Jane Doe,Deputy Chief Constable,Crime prevention specialist,jane.doe@met.police.uk",
		"Robert Brown,Assistant Chief Constable,Community policing expert,robert.brown@met.police.uk",
	)
	return []string{crimes, outcomes, stops, forces, officers}
}

func TestImportEndToEnd(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	files := fixtureFiles(t, dir)

	imp := New(nil)
	result, err := imp.ImportFiles(files, Options{
		DBPath:          dbPath,
		ReplaceExisting: true,
		SchemaSQL:       schema.Consolidated,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed, "no file should fail: %+v", result.Failed)
	assert.Equal(t, ModeConsolidated, result.Mode)
	assert.Len(t, result.Succeeded, 5)

	db := openDB(t, dbPath)
	assert.Equal(t, 5, countRows(t, db, "crimes"))
	assert.Equal(t, 5, countRows(t, db, "outcomes"))
	assert.Equal(t, 5, countRows(t, db, "stops"))
	assert.Equal(t, 3, countRows(t, db, "police_forces"))
	assert.Equal(t, 3, countRows(t, db, "senior_officers"))

	var pairs int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM crimes c JOIN outcomes o ON c.persistent_id = o.crime_id").Scan(&pairs))
	assert.Equal(t, 5, pairs, "every crime should join its outcome")
}

func TestCityPatternMetadata(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	path := writeCSV(t, dir, "crimes_london_2023-01.csv",
		"category,month,persistent_id",
		"burglary,2023-01,abc123",
	)

	result, err := New(nil).ImportFiles([]string{path}, Options{
		DBPath: dbPath, ReplaceExisting: true, SchemaSQL: schema.Consolidated,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed)

	db := openDB(t, dbPath)
	var city, date, locType string
	require.NoError(t, db.QueryRow(
		"SELECT city, data_date, location_type FROM crimes").Scan(&city, &date, &locType))
	assert.Equal(t, "london", city)
	assert.Equal(t, "2023-01", date)
	assert.Equal(t, "street", locType)
}

func TestForcePatternMetadata(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	path := writeCSV(t, dir, "neighborhoods_metropolitan.csv",
		"id,name",
		"EW1001,Westminster",
		"EW1002,Camden",
	)

	result, err := New(nil).ImportFiles([]string{path}, Options{
		DBPath: dbPath, ReplaceExisting: true, SchemaSQL: schema.Consolidated,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed)

	db := openDB(t, dbPath)
	rows, err := db.Query("SELECT force_id FROM neighborhoods")
	require.NoError(t, err)
	defer rows.Close()
	n := 0
	for rows.Next() {
		var forceID string
		require.NoError(t, rows.Scan(&forceID))
		assert.Equal(t, "metropolitan", forceID)
		n++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, 2, n)
}

func TestExistingDatabaseIsLeftUntouched(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	path := writeCSV(t, dir, "crimes_london_2023-01.csv",
		"category,persistent_id", "burglary,abc123")

	imp := New(nil)
	first, err := imp.ImportFiles([]string{path}, Options{
		DBPath: dbPath, ReplaceExisting: true, SchemaSQL: schema.Consolidated,
	})
	require.NoError(t, err)
	require.Empty(t, first.Failed)

	second, err := imp.ImportFiles([]string{path}, Options{
		DBPath: dbPath, ReplaceExisting: false, SchemaSQL: schema.Consolidated,
	})
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Empty(t, second.Succeeded)

	db := openDB(t, dbPath)
	assert.Equal(t, 1, countRows(t, db, "crimes"), "second run must be a no-op")
}

func TestReimportWithReplaceAppendsDuplicates(t *testing.T) {
	// Re-running with ReplaceExisting re-applies the idempotent DDL
	// and appends. Doubled rows are the documented outcome, not a bug.
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	path := writeCSV(t, dir, "crimes_london_2023-01.csv",
		"category,persistent_id",
		"burglary,abc123",
		"theft,def456",
	)

	imp := New(nil)
	for i := 0; i < 2; i++ {
		result, err := imp.ImportFiles([]string{path}, Options{
			DBPath: dbPath, ReplaceExisting: true, SchemaSQL: schema.Consolidated,
		})
		require.NoError(t, err)
		require.Empty(t, result.Failed)
	}

	db := openDB(t, dbPath)
	assert.Equal(t, 4, countRows(t, db, "crimes"))
}

func TestUnmatchedFileReplacesStandaloneTable(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	path := writeCSV(t, dir, "weird_file.csv",
		"a,b",
		"1,2",
		"3,4",
		"5,6",
	)

	imp := New(nil)
	for i := 0; i < 2; i++ {
		result, err := imp.ImportFiles([]string{path}, Options{
			DBPath: dbPath, ReplaceExisting: true, SchemaSQL: schema.Consolidated,
		})
		require.NoError(t, err)
		require.Empty(t, result.Failed)
	}

	db := openDB(t, dbPath)
	assert.Equal(t, 3, countRows(t, db, "weird_file"),
		"replace semantics must keep the count stable across runs")
}

func TestCrimeLastUpdatedInsertsJSONRow(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	path := writeCSV(t, dir, "crime_last_updated_2023-01.csv",
		"date",
		"2023-01-15",
	)

	result, err := New(nil).ImportFiles([]string{path}, Options{
		DBPath: dbPath, ReplaceExisting: true, SchemaSQL: schema.Consolidated,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed)

	db := openDB(t, dbPath)
	var dataType, dataDate, details string
	require.NoError(t, db.QueryRow(
		"SELECT data_type, data_date, details FROM data_updates").Scan(&dataType, &dataDate, &details))
	assert.Equal(t, "crime", dataType)
	assert.Equal(t, "2023-01", dataDate)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(details), &decoded))
	assert.Equal(t, "2023-01-15", decoded["date"])
}

func TestCrimeCategoriesAppend(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	path := writeCSV(t, dir, "crime_categories_2023-01.csv",
		"url,name",
		"all-crime,All crime",
		"burglary,Burglary",
	)

	result, err := New(nil).ImportFiles([]string{path}, Options{
		DBPath: dbPath, ReplaceExisting: true, SchemaSQL: schema.Consolidated,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed)

	db := openDB(t, dbPath)
	assert.Equal(t, 2, countRows(t, db, "crime_categories"))
}

func TestSchemaFailureDowngradesToLegacy(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	path := writeCSV(t, dir, "crimes_london_2023-01.csv",
		"category,persistent_id", "burglary,abc123")

	result, err := New(nil).ImportFiles([]string{path}, Options{
		DBPath:          dbPath,
		ReplaceExisting: true,
		SchemaSQL:       "CREATE SYNTAX ERROR",
	})
	require.NoError(t, err)
	assert.Equal(t, ModeLegacy, result.Mode)
	require.Empty(t, result.Failed)

	// In legacy mode the file lands in its own slugified table with
	// no metadata columns.
	db := openDB(t, dbPath)
	assert.Equal(t, 1, countRows(t, db, "crimes_london_2023_01"))
	rows, err := db.Query("SELECT * FROM crimes_london_2023_01")
	require.NoError(t, err)
	defer rows.Close()
	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.NotContains(t, cols, "city")
}

func TestManifestOverridesFilenameInference(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	// stops_force names defeat the filename patterns; the manifest
	// is what routes them.
	path := writeCSV(t, dir, "stops_force_metropolitan_2023-01.csv",
		"age_range,outcome",
		"18-24,Arrest",
	)

	manifest := NewManifest("test-run")
	manifest.Add(path, ManifestEntry{
		Table: "stops",
		Metadata: map[string]string{
			"force_id": "metropolitan", "data_date": "2023-01", "stop_type": "standard",
		},
	})

	result, err := New(nil).ImportFiles([]string{path}, Options{
		DBPath:          dbPath,
		ReplaceExisting: true,
		SchemaSQL:       schema.Consolidated,
		Manifest:        manifest,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed)

	db := openDB(t, dbPath)
	var forceID, stopType string
	require.NoError(t, db.QueryRow(
		"SELECT force_id, stop_type FROM stops").Scan(&forceID, &stopType))
	assert.Equal(t, "metropolitan", forceID)
	assert.Equal(t, "standard", stopType)
}

func TestForcesListAppendsAlongsideForceDetails(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")

	// force_details_* sorts before police_forces.csv, so the details
	// row lands first; the list import must append, not drop the DDL
	// table out from under it.
	details := writeCSV(t, dir, "force_details_metropolitan.csv",
		"id,name,description,engagement_methods",
		"metropolitan,Metropolitan Police,London police force,twitter",
	)
	list := writeCSV(t, dir, "police_forces.csv",
		"id,name",
		"metropolitan,Metropolitan Police",
		"west-midlands,West Midlands Police",
		"greater-manchester,Greater Manchester Police",
	)

	manifest := NewManifest("test-run")
	manifest.Add(details, ManifestEntry{
		Table:    "police_forces",
		Metadata: map[string]string{"force_id": "metropolitan"},
	})
	manifest.Add(list, ManifestEntry{Table: "police_forces"})

	result, err := New(nil).ImportFiles([]string{details, list}, Options{
		DBPath:          dbPath,
		ReplaceExisting: true,
		SchemaSQL:       schema.Consolidated,
		Manifest:        manifest,
	})
	require.NoError(t, err)
	require.Empty(t, result.Failed)

	db := openDB(t, dbPath)
	assert.Equal(t, 4, countRows(t, db, "police_forces"))

	var description, engagement string
	require.NoError(t, db.QueryRow(
		"SELECT description, engagement_methods FROM police_forces WHERE force_id = 'metropolitan'").
		Scan(&description, &engagement))
	assert.Equal(t, "London police force", description)
	assert.Equal(t, "twitter", engagement)
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest("run-1")
	m.Add(filepath.Join(dir, "crimes_london_2023-01.csv"), ManifestEntry{
		Table:    "crimes",
		Metadata: map[string]string{"city": "london"},
	})
	_, err := m.Save(dir)
	require.NoError(t, err)

	loaded, err := LoadManifest(dir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	entry, ok := loaded.Lookup("crimes_london_2023-01.csv")
	require.True(t, ok)
	assert.Equal(t, "crimes", entry.Table)
	assert.Equal(t, "london", entry.Metadata["city"])

	missing, err := LoadManifest(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBadFileDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	good := writeCSV(t, dir, "crimes_london_2023-01.csv",
		"category,persistent_id", "burglary,abc123")
	missing := filepath.Join(dir, "outcomes_london_2023-01.csv")

	result, err := New(nil).ImportFiles([]string{missing, good}, Options{
		DBPath: dbPath, ReplaceExisting: true, SchemaSQL: schema.Consolidated,
	})
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, missing, result.Failed[0].Path)

	db := openDB(t, dbPath)
	assert.Equal(t, 1, countRows(t, db, "crimes"))
}

func TestUnknownColumnFailsThatFileOnly(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "police.db")
	bad := writeCSV(t, dir, "crimes_london_2023-01.csv",
		"category,not_a_real_column", "burglary,oops")
	good := writeCSV(t, dir, "outcomes_london_2023-01.csv",
		"category_code,crime_id", "charged,abc123")

	result, err := New(nil).ImportFiles([]string{bad, good}, Options{
		DBPath: dbPath, ReplaceExisting: true, SchemaSQL: schema.Consolidated,
	})
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, fmt.Sprint(result.Failed[0].Err), "crimes")
	require.Len(t, result.Succeeded, 1)

	db := openDB(t, dbPath)
	assert.Equal(t, 0, countRows(t, db, "crimes"))
	assert.Equal(t, 1, countRows(t, db, "outcomes"))
}
