package rest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/ports"
)

func (c *Client) ListItems(ctx context.Context, boardID uuid.UUID) ([]entities.Item, error) {
	var items []entities.Item
	if err := c.do(ctx, "GET", "/boards/"+boardID.String()+"/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateItem(ctx context.Context, req ports.CreateItemRequest) (*entities.Item, error) {
	var item entities.Item
	if err := c.do(ctx, "POST", "/items", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, id uuid.UUID, req ports.UpdateItemRequest) (*entities.Item, error) {
	var item entities.Item
	if err := c.do(ctx, "PUT", "/items/"+id.String(), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "DELETE", "/items/"+id.String(), nil, nil)
}

func (c *Client) CompleteItem(ctx context.Context, id uuid.UUID, completed bool) (*entities.Item, error) {
	var item entities.Item
	req := ports.CompleteItemRequest{Completed: completed}
	if err := c.do(ctx, "POST", "/items/"+id.String()+"/complete", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) MoveItem(ctx context.Context, id uuid.UUID, boardID uuid.UUID) (*entities.Item, error) {
	var item entities.Item
	req := ports.MoveItemRequest{BoardID: boardID}
	if err := c.do(ctx, "POST", "/items/"+id.String()+"/move", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) SetReminder(ctx context.Context, id uuid.UUID, at *time.Time) (*entities.Item, error) {
	var item entities.Item
	req := ports.ReminderRequest{At: at}
	if err := c.do(ctx, "PUT", "/items/"+id.String()+"/reminder", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) ReorderItems(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) error {
	return c.do(ctx, "PUT", "/boards/"+boardID.String()+"/items/reorder", ports.ReorderRequest{IDs: ids}, nil)
}

func (c *Client) CompleteHabit(ctx context.Context, id uuid.UUID, day string, done bool) error {
	req := ports.HabitCompleteRequest{Day: day, Done: done}
	return c.do(ctx, "POST", "/items/"+id.String()+"/habit/complete", req, nil)
}

func (c *Client) ListHabitCompletions(ctx context.Context, id uuid.UUID) ([]entities.HabitCompletion, error) {
	var completions []entities.HabitCompletion
	if err := c.do(ctx, "GET", "/items/"+id.String()+"/habit/completions", nil, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}
