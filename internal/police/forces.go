package police

import (
	"context"
	"errors"
)

// ForcesAPI covers the police force endpoints.
type ForcesAPI struct {
	client *Client
}

// Forces returns the force extractor bound to this client.
func (c *Client) Forces() *ForcesAPI {
	return &ForcesAPI{client: c}
}

// List fetches every police force (id and name).
func (a *ForcesAPI) List(ctx context.Context) ([]map[string]any, error) {
	return a.client.getList(ctx, "forces", nil)
}

// Details fetches the full record for one force.
func (a *ForcesAPI) Details(ctx context.Context, forceID string) (map[string]any, error) {
	if forceID == "" {
		return nil, errors.New("force id is required")
	}
	return a.client.getObject(ctx, "forces/"+forceID, nil)
}

// SeniorOfficers fetches the senior officers of one force.
func (a *ForcesAPI) SeniorOfficers(ctx context.Context, forceID string) ([]map[string]any, error) {
	if forceID == "" {
		return nil, errors.New("force id is required")
	}
	return a.client.getList(ctx, "forces/"+forceID+"/people", nil)
}
