// Package schema carries the consolidated SQLite schema so the binary
// can initialize a database without an external file.
package schema

import _ "embed"

// Consolidated is the idempotent DDL for the consolidated tables.
//
//go:embed consolidated_schema.sql
var Consolidated string

// Description summarizes the consolidated tables for the agent's
// system prompt.
const Description = `Tables:
- crimes: street-level crimes. Columns include category, month, persistent_id,
  location_latitude/longitude, location_street_name, outcome_status, plus
  metadata: city, data_date, location_type (street|specific|none), force_id.
- outcomes: case outcomes. crime_id joins to crimes.persistent_id. Metadata:
  city, data_date.
- stops: stop and search records. Columns include type, datetime, age_range,
  gender, ethnicity fields, object_of_search, outcome, plus metadata: city,
  data_date, force_id, stop_type (standard|area|location|no_location).
- police_forces: force id, name, description, telephone, url.
- senior_officers: name, rank, bio, contact_details, force_id.
- neighborhoods: id, name, description, population, force_id, neighborhood_id.
- neighborhood_boundaries / neighborhood_teams / neighborhood_events /
  neighborhood_priorities: per-neighborhood detail tables keyed by force_id
  and neighborhood_id.
- crime_categories: url (slug), name.
- data_updates: provenance log (data_type, data_date, update_date, details JSON).

Dates are YYYY-MM strings. City names are lowercase (london, manchester, ...).
Force ids are slugs (metropolitan, west-midlands, ...).`
