// Package renderpg stores saved renders in Postgres
package renderpg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, r *model.Render) error {
	query := `INSERT INTO renders (render_uid, session_id, result_key, content_type, width, height, steps, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	return p.DB.QueryRowContext(ctx, query, r.UID, r.SessionID, r.ResultKey, r.ContentType, r.Width, r.Height, r.Steps, r.CreatedAt).Err()
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Render, error) {
	query := `SELECT render_uid, session_id, result_key, thumb_key, content_type, width, height, steps, created_at
	FROM renders
	WHERE render_uid = $1`
	var render model.Render

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&render.UID,
		&render.SessionID,
		&render.ResultKey,
		&render.ThumbKey,
		&render.ContentType,
		&render.Width,
		&render.Height,
		&render.Steps,
		&render.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrRenderNotFound
		default:
			return nil, err // 500
		}
	}
	render.HasThumb = render.ThumbKey != nil
	return &render, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Render, error) {
	// Sort и Order уже провалидированы сервисом по белому списку
	query := fmt.Sprintf(`SELECT render_uid, session_id, thumb_key, content_type, width, height, steps, created_at
	FROM renders
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, req.Sort, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	renders := make([]model.Render, 0, req.Limit)
	for rows.Next() {
		var render model.Render
		if err := rows.Scan(&render.UID,
			&render.SessionID,
			&render.ThumbKey,
			&render.ContentType,
			&render.Width,
			&render.Height,
			&render.Steps,
			&render.CreatedAt); err != nil {
			return nil, err
		}
		render.HasThumb = render.ThumbKey != nil
		renders = append(renders, render)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return renders, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM renders
	WHERE render_uid = $1
	RETURNING render_uid`

	var deleted string
	if err := p.DB.QueryRowContext(ctx, query, id).Scan(&deleted); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrRenderNotFound // 404
		default:
			return err // 500
		}
	}
	return nil
}

func (p PostgresRepo) SaveThumbnail(ctx context.Context, id string, thumbKey string) error {
	query := `UPDATE renders SET thumb_key = $1
	WHERE render_uid = $2
	RETURNING render_uid`

	var updated string
	if err := p.DB.QueryRowContext(ctx, query, thumbKey, id).Scan(&updated); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrRenderNotFound // 404
		default:
			return err // 500
		}
	}
	return nil
}
