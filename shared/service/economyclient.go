// shared/service/economyclient.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/skyward-mc/skyblock-services/shared/api"
)

// EconomyServiceClient is a client for the network's Economy Service, which
// owns player wallet balances. Island bank movements are paired with wallet
// movements through this client.
type EconomyServiceClient struct {
	apiClient *api.Client
}

// NewEconomyClient creates a new Economy Service client.
func NewEconomyClient(baseURL string) *EconomyServiceClient {
	return &EconomyServiceClient{
		apiClient: api.NewClient(baseURL, api.NewDefaultHTTPClient()),
	}
}

// balanceResponse is the shape returned by the economy service balance endpoint.
type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// amountRequest is the request body for deposit and withdraw calls.
type amountRequest struct {
	Amount float64 `json:"amount"`
}

// HasBalance reports whether the player's wallet holds at least the given amount.
func (c *EconomyServiceClient) HasBalance(ctx context.Context, playerUUID string, amount float64) (bool, error) {
	resp := &balanceResponse{}
	err := c.apiClient.Get(ctx, fmt.Sprintf("/accounts/%s/balance", playerUUID), resp)
	if err != nil {
		return false, fmt.Errorf("failed to get balance for player %s from Economy Service: %w", playerUUID, err)
	}
	return resp.Balance >= amount, nil
}

// RemoveBalance withdraws the given amount from the player's wallet.
// Returns api.ErrPaymentRequired (wrapped) when the wallet cannot cover it.
func (c *EconomyServiceClient) RemoveBalance(ctx context.Context, playerUUID string, amount float64) error {
	reqData := amountRequest{Amount: amount}
	err := c.apiClient.Post(ctx, fmt.Sprintf("/accounts/%s/withdraw", playerUUID), reqData, nil)
	if err != nil {
		if errors.Is(err, api.ErrPaymentRequired) {
			return fmt.Errorf("%w: player %s cannot cover %.2f", api.ErrPaymentRequired, playerUUID, amount)
		}
		return fmt.Errorf("failed to withdraw %.2f from player %s in Economy Service: %w", amount, playerUUID, err)
	}
	return nil
}

// AddBalance deposits the given amount into the player's wallet.
func (c *EconomyServiceClient) AddBalance(ctx context.Context, playerUUID string, amount float64) error {
	reqData := amountRequest{Amount: amount}
	err := c.apiClient.Post(ctx, fmt.Sprintf("/accounts/%s/deposit", playerUUID), reqData, nil)
	if err != nil {
		return fmt.Errorf("failed to deposit %.2f to player %s in Economy Service: %w", amount, playerUUID, err)
	}
	return nil
}

// FormatMoney renders an amount the way the network displays currency.
func (c *EconomyServiceClient) FormatMoney(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}
