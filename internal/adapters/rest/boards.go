package rest

import (
	"context"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/ports"
)

func (c *Client) ListBoards(ctx context.Context, folderID uuid.UUID) ([]entities.Board, error) {
	var boards []entities.Board
	if err := c.do(ctx, "GET", "/folders/"+folderID.String()+"/boards", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) CreateBoard(ctx context.Context, folderID uuid.UUID, req ports.CreateBoardRequest) (*entities.Board, error) {
	var board entities.Board
	if err := c.do(ctx, "POST", "/folders/"+folderID.String()+"/boards", req, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) UpdateBoard(ctx context.Context, id uuid.UUID, req ports.UpdateBoardRequest) (*entities.Board, error) {
	var board entities.Board
	if err := c.do(ctx, "PUT", "/boards/"+id.String(), req, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "DELETE", "/boards/"+id.String(), nil, nil)
}
