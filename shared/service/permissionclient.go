// shared/service/permissionclient.go
package service

import (
	"context"
	"fmt"

	"github.com/skyward-mc/skyblock-services/shared/api"
)

// PermissionServiceClient is a client for the network's Permission Service.
// Gated operations (island creation, extra warp slots) consult it before acting.
type PermissionServiceClient struct {
	apiClient *api.Client
}

// NewPermissionClient creates a new Permission Service client.
func NewPermissionClient(baseURL string) *PermissionServiceClient {
	return &PermissionServiceClient{
		apiClient: api.NewClient(baseURL, api.NewDefaultHTTPClient()),
	}
}

// permissionResponse is the shape returned by the permission check endpoint.
type permissionResponse struct {
	HasPermission bool `json:"hasPermission"`
}

// HasPermission reports whether the player holds the given permission node.
func (c *PermissionServiceClient) HasPermission(ctx context.Context, playerUUID, permission string) (bool, error) {
	resp := &permissionResponse{}
	err := c.apiClient.Get(ctx, fmt.Sprintf("/players/%s/permissions/%s", playerUUID, permission), resp)
	if err != nil {
		return false, fmt.Errorf("failed to check permission %q for player %s in Permission Service: %w", permission, playerUUID, err)
	}
	return resp.HasPermission, nil
}
