package transport

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"insureadmin/internal/gateway"
	"insureadmin/pkg/platform/sentinel"
)

// Postgres stores each logical resource as a jsonb document in the documents
// table, keyed by collection and id. Guarded writes compare doc->>field in the
// UPDATE so a lost race surfaces as 412.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Do(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	collection, id := gateway.SplitPath(req.Path)
	switch req.Op {
	case gateway.OpFetch:
		if id == "" {
			return p.list(ctx, collection)
		}
		return p.get(ctx, collection, id)
	case gateway.OpPut:
		if id == "" {
			return status(http.StatusBadRequest), nil
		}
		if req.Precondition != nil {
			return p.guardedUpdate(ctx, collection, id, req.Body, *req.Precondition, false)
		}
		return p.upsert(ctx, collection, id, req.Body)
	case gateway.OpPatch:
		if req.Precondition != nil {
			return p.guardedUpdate(ctx, collection, id, req.Body, *req.Precondition, true)
		}
		return p.merge(ctx, collection, id, req.Body)
	case gateway.OpDelete:
		return p.delete(ctx, collection, id)
	}
	return status(http.StatusMethodNotAllowed), nil
}

func (p *Postgres) list(ctx context.Context, collection string) (gateway.Response, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 ORDER BY updated_at, id`, collection)
	if err != nil {
		return gateway.Response{}, unavailable(err)
	}
	defer rows.Close()

	items := []json.RawMessage{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return gateway.Response{}, unavailable(err)
		}
		items = append(items, doc)
	}
	if err := rows.Err(); err != nil {
		return gateway.Response{}, unavailable(err)
	}
	body, err := json.Marshal(items)
	if err != nil {
		return gateway.Response{}, err
	}
	return gateway.Response{Status: http.StatusOK, Body: body}, nil
}

func (p *Postgres) get(ctx context.Context, collection, id string) (gateway.Response, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return status(http.StatusNotFound), nil
	}
	if err != nil {
		return gateway.Response{}, unavailable(err)
	}
	return gateway.Response{Status: http.StatusOK, Body: doc}, nil
}

func (p *Postgres) upsert(ctx context.Context, collection, id string, body json.RawMessage) (gateway.Response, error) {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, doc, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, collection, id, string(body))
	if err != nil {
		return gateway.Response{}, unavailable(err)
	}
	return gateway.Response{Status: http.StatusOK, Body: body}, nil
}

func (p *Postgres) merge(ctx context.Context, collection, id string, body json.RawMessage) (gateway.Response, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `
		UPDATE documents SET doc = doc || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
		RETURNING doc
	`, collection, id, string(body)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return status(http.StatusNotFound), nil
	}
	if err != nil {
		return gateway.Response{}, unavailable(err)
	}
	return gateway.Response{Status: http.StatusOK, Body: doc}, nil
}

func (p *Postgres) guardedUpdate(ctx context.Context, collection, id string, body json.RawMessage, pre gateway.Precondition, merge bool) (gateway.Response, error) {
	set := `$3::jsonb`
	if merge {
		set = `doc || $3::jsonb`
	}
	var doc []byte
	err := p.db.QueryRowContext(ctx, `
		UPDATE documents SET doc = `+set+`, updated_at = now()
		WHERE collection = $1 AND id = $2 AND doc->>$4 = $5
		RETURNING doc
	`, collection, id, string(body), pre.Field, pre.Equals).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return status(http.StatusPreconditionFailed), nil
	}
	if err != nil {
		return gateway.Response{}, unavailable(err)
	}
	return gateway.Response{Status: http.StatusOK, Body: doc}, nil
}

func (p *Postgres) delete(ctx context.Context, collection, id string) (gateway.Response, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return gateway.Response{}, unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return status(http.StatusNotFound), nil
	}
	return status(http.StatusNoContent), nil
}

func unavailable(err error) error {
	return fmt.Errorf("postgres transport: %w: %w", sentinel.ErrUnavailable, err)
}
