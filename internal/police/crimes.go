package police

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrLocationRequired is returned when neither a lat/lng pair nor a
// polygon was supplied to an endpoint that needs one.
var ErrLocationRequired = errors.New("either lat/lng or poly must be provided")

// CrimesAPI covers the street-level crime and outcome endpoints.
type CrimesAPI struct {
	client *Client
}

// Crimes returns the crime extractor bound to this client.
func (c *Client) Crimes() *CrimesAPI {
	return &CrimesAPI{client: c}
}

// AllCrime is the category covering every crime type.
const AllCrime = "all-crime"

func locationParams(lat, lng float64, poly string) (url.Values, error) {
	params := url.Values{}
	switch {
	case poly != "":
		params.Set("poly", poly)
	case lat != 0 || lng != 0:
		params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		params.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	default:
		return nil, ErrLocationRequired
	}
	return params, nil
}

// StreetCrimes fetches street-level crimes around a point or inside a
// polygon for one month. category defaults to all-crime; date is
// YYYY-MM and defaults to the latest available month when empty.
func (a *CrimesAPI) StreetCrimes(ctx context.Context, lat, lng float64, poly, date, category string) ([]map[string]any, error) {
	params, err := locationParams(lat, lng, poly)
	if err != nil {
		return nil, err
	}
	if date != "" {
		params.Set("date", date)
	}
	if category == "" {
		category = AllCrime
	}
	return a.client.getList(ctx, "crimes-street/"+category, params)
}

// CrimesAtLocation fetches crimes at a specific location, either by
// location ID or by snapping a lat/lng to the nearest location.
func (a *CrimesAPI) CrimesAtLocation(ctx context.Context, locationID string, lat, lng float64, date string) ([]map[string]any, error) {
	params := url.Values{}
	if locationID != "" {
		params.Set("location_id", locationID)
	} else {
		p, err := locationParams(lat, lng, "")
		if err != nil {
			return nil, fmt.Errorf("crimes-at-location requires a location_id or lat/lng: %w", err)
		}
		params = p
	}
	if date != "" {
		params.Set("date", date)
	}
	return a.client.getList(ctx, "crimes-at-location", params)
}

// CrimesNoLocation fetches crimes that could not be mapped to a
// location, scoped to a force. force is required.
func (a *CrimesAPI) CrimesNoLocation(ctx context.Context, force, category, date string) ([]map[string]any, error) {
	if force == "" {
		return nil, errors.New("force is required for crimes with no location")
	}
	if category == "" {
		category = AllCrime
	}
	params := url.Values{}
	params.Set("category", category)
	params.Set("force", force)
	if date != "" {
		params.Set("date", date)
	}
	return a.client.getList(ctx, "crimes-no-location", params)
}

// OutcomesAtLocation fetches outcomes around a point or polygon for a
// month.
func (a *CrimesAPI) OutcomesAtLocation(ctx context.Context, lat, lng float64, poly, date string) ([]map[string]any, error) {
	params, err := locationParams(lat, lng, poly)
	if err != nil {
		return nil, err
	}
	if date != "" {
		params.Set("date", date)
	}
	return a.client.getList(ctx, "outcomes-at-location", params)
}

// OutcomesForCrime fetches the outcome history of a single crime by
// its persistent ID. The response is an object with crime and
// outcomes keys.
func (a *CrimesAPI) OutcomesForCrime(ctx context.Context, persistentID string) (map[string]any, error) {
	if persistentID == "" {
		return nil, errors.New("persistent crime id is required")
	}
	return a.client.getObject(ctx, "outcomes-for-crime/"+persistentID, nil)
}

// Categories fetches the valid crime categories, optionally as of a
// given month.
func (a *CrimesAPI) Categories(ctx context.Context, date string) ([]map[string]any, error) {
	params := url.Values{}
	if date != "" {
		params.Set("date", date)
	}
	return a.client.getList(ctx, "crime-categories", params)
}

// LastUpdated fetches the date crime data was last refreshed. The
// endpoint returns a single object.
func (a *CrimesAPI) LastUpdated(ctx context.Context) (map[string]any, error) {
	return a.client.getObject(ctx, "crime-last-updated", nil)
}
