package rest

import (
	"context"
	"strconv"

	"github.com/boardflow/core/internal/domain/entities"
)

func (c *Client) Overview(ctx context.Context) (*entities.AnalyticsOverview, error) {
	var overview entities.AnalyticsOverview
	if err := c.do(ctx, "GET", "/analytics/overview", nil, &overview); err != nil {
		return nil, err
	}
	return &overview, nil
}

func (c *Client) Completion(ctx context.Context, days int) ([]entities.CompletionPoint, error) {
	var points []entities.CompletionPoint
	if err := c.do(ctx, "GET", "/analytics/completion?days="+strconv.Itoa(days), nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}
