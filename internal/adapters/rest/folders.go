package rest

import (
	"context"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/ports"
)

func (c *Client) ListFolders(ctx context.Context) ([]entities.Folder, error) {
	var folders []entities.Folder
	if err := c.do(ctx, "GET", "/folders", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

func (c *Client) GetFolder(ctx context.Context, id uuid.UUID) (*entities.Folder, error) {
	var folder entities.Folder
	if err := c.do(ctx, "GET", "/folders/"+id.String(), nil, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) CreateFolder(ctx context.Context, req ports.CreateFolderRequest) (*entities.Folder, error) {
	var folder entities.Folder
	if err := c.do(ctx, "POST", "/folders", req, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) UpdateFolder(ctx context.Context, id uuid.UUID, req ports.UpdateFolderRequest) (*entities.Folder, error) {
	var folder entities.Folder
	if err := c.do(ctx, "PUT", "/folders/"+id.String(), req, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "DELETE", "/folders/"+id.String(), nil, nil)
}

func (c *Client) ReorderFolders(ctx context.Context, ids []uuid.UUID) error {
	return c.do(ctx, "PUT", "/folders/reorder", ports.ReorderRequest{IDs: ids}, nil)
}
