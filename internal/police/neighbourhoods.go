package police

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// NeighbourhoodsAPI covers the neighbourhood policing endpoints.
type NeighbourhoodsAPI struct {
	client *Client
}

// Neighbourhoods returns the neighbourhood extractor bound to this
// client.
func (c *Client) Neighbourhoods() *NeighbourhoodsAPI {
	return &NeighbourhoodsAPI{client: c}
}

func (a *NeighbourhoodsAPI) require(forceID, neighbourhoodID string) error {
	if forceID == "" {
		return errors.New("force id is required")
	}
	if neighbourhoodID == "" {
		return errors.New("neighbourhood id is required")
	}
	return nil
}

// List fetches the neighbourhoods of one force.
func (a *NeighbourhoodsAPI) List(ctx context.Context, forceID string) ([]map[string]any, error) {
	if forceID == "" {
		return nil, errors.New("force id is required")
	}
	return a.client.getList(ctx, forceID+"/neighbourhoods", nil)
}

// Details fetches the full record for one neighbourhood.
func (a *NeighbourhoodsAPI) Details(ctx context.Context, forceID, neighbourhoodID string) (map[string]any, error) {
	if err := a.require(forceID, neighbourhoodID); err != nil {
		return nil, err
	}
	return a.client.getObject(ctx, forceID+"/"+neighbourhoodID, nil)
}

// Boundary fetches the lat/lng boundary points of one neighbourhood.
func (a *NeighbourhoodsAPI) Boundary(ctx context.Context, forceID, neighbourhoodID string) ([]map[string]any, error) {
	if err := a.require(forceID, neighbourhoodID); err != nil {
		return nil, err
	}
	return a.client.getList(ctx, forceID+"/"+neighbourhoodID+"/boundary", nil)
}

// Team fetches the policing team members of one neighbourhood.
func (a *NeighbourhoodsAPI) Team(ctx context.Context, forceID, neighbourhoodID string) ([]map[string]any, error) {
	if err := a.require(forceID, neighbourhoodID); err != nil {
		return nil, err
	}
	return a.client.getList(ctx, forceID+"/"+neighbourhoodID+"/people", nil)
}

// Events fetches upcoming events for one neighbourhood.
func (a *NeighbourhoodsAPI) Events(ctx context.Context, forceID, neighbourhoodID string) ([]map[string]any, error) {
	if err := a.require(forceID, neighbourhoodID); err != nil {
		return nil, err
	}
	return a.client.getList(ctx, forceID+"/"+neighbourhoodID+"/events", nil)
}

// Priorities fetches the policing priorities of one neighbourhood.
func (a *NeighbourhoodsAPI) Priorities(ctx context.Context, forceID, neighbourhoodID string) ([]map[string]any, error) {
	if err := a.require(forceID, neighbourhoodID); err != nil {
		return nil, err
	}
	return a.client.getList(ctx, forceID+"/"+neighbourhoodID+"/priorities", nil)
}

// Locate finds the neighbourhood containing a point. Returns a force
// and neighbourhood pair.
func (a *NeighbourhoodsAPI) Locate(ctx context.Context, lat, lng float64) (map[string]any, error) {
	if lat == 0 && lng == 0 {
		return nil, ErrLocationRequired
	}
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%v,%v", lat, lng))
	return a.client.getObject(ctx, "locate-neighbourhood", params)
}
