package police

import (
	"context"
	"errors"
	"net/url"
)

// StopsAPI covers the stop-and-search endpoints.
type StopsAPI struct {
	client *Client
}

// Stops returns the stop-and-search extractor bound to this client.
func (c *Client) Stops() *StopsAPI {
	return &StopsAPI{client: c}
}

// StreetStops fetches stop and searches around a point or inside a
// polygon for one month.
func (a *StopsAPI) StreetStops(ctx context.Context, lat, lng float64, poly, date string) ([]map[string]any, error) {
	params, err := locationParams(lat, lng, poly)
	if err != nil {
		return nil, err
	}
	if date != "" {
		params.Set("date", date)
	}
	return a.client.getList(ctx, "stops-street", params)
}

// StopsAtLocation fetches stop and searches at a specific location ID.
func (a *StopsAPI) StopsAtLocation(ctx context.Context, locationID, date string) ([]map[string]any, error) {
	if locationID == "" {
		return nil, errors.New("location_id is required")
	}
	params := url.Values{}
	params.Set("location_id", locationID)
	if date != "" {
		params.Set("date", date)
	}
	return a.client.getList(ctx, "stops-at-location", params)
}

// StopsNoLocation fetches stop and searches that could not be mapped
// to a location, scoped to a force.
func (a *StopsAPI) StopsNoLocation(ctx context.Context, force, date string) ([]map[string]any, error) {
	if force == "" {
		return nil, errors.New("force is required for stops with no location")
	}
	params := url.Values{}
	params.Set("force", force)
	if date != "" {
		params.Set("date", date)
	}
	return a.client.getList(ctx, "stops-no-location", params)
}

// StopsByForce fetches all stop and searches reported by a force for
// one month.
func (a *StopsAPI) StopsByForce(ctx context.Context, force, date string) ([]map[string]any, error) {
	if force == "" {
		return nil, errors.New("force is required")
	}
	params := url.Values{}
	params.Set("force", force)
	if date != "" {
		params.Set("date", date)
	}
	return a.client.getList(ctx, "stops-force", params)
}
