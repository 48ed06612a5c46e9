package opensky

import (
	"context"
	"fmt"

	"github.com/rickgao/opensky2cot/internal/model"
)

// FetchStates returns the current state vector of every aircraft visible
// to the network, in the order the API returned them. Rows that cannot be
// decoded are dropped.
func (c *Client) FetchStates(ctx context.Context) ([]model.StateVector, error) {
	var resp StatesResponse
	if err := c.get(ctx, "/states/all", nil, &resp); err != nil {
		return nil, fmt.Errorf("get states: %w", err)
	}

	states := make([]model.StateVector, 0, len(resp.States))
	malformed := 0

	for i, row := range resp.States {
		sv, err := decodeState(row)
		if err != nil {
			malformed++
			c.logger.Debug("dropping malformed state",
				"index", i,
				"error", err,
			)
			continue
		}
		states = append(states, sv)
	}

	if malformed > 0 {
		c.logger.Warn("dropped malformed states",
			"malformed", malformed,
			"total", len(resp.States),
		)
	}

	return states, nil
}
