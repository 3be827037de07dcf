package notes

import (
	"context"
	"database/sql"
	"errors"

	"example.com/notes-api/internal/mathx"
)

// Repository persists notes. Every query carries the (id, owner_id) predicate
// directly in SQL, so a row owned by someone else is never fetched and then
// filtered in-process.
type Repository struct {
	db *sql.DB

	stmtGet    *sql.Stmt
	stmtUpdate *sql.Stmt
	stmtCount  *sql.Stmt
}

func NewRepository(ctx context.Context, db *sql.DB) (*Repository, error) {
	get, err := db.PrepareContext(ctx, `
		SELECT id, title, content, owner_id, created_at
		FROM notes
		WHERE id = $1 AND owner_id = $2
	`)
	if err != nil {
		return nil, err
	}

	upd, err := db.PrepareContext(ctx, `
		UPDATE notes
		SET title = COALESCE($1, title), content = COALESCE($2, content)
		WHERE id = $3 AND owner_id = $4
		RETURNING id, title, content, owner_id, created_at
	`)
	if err != nil {
		return nil, err
	}

	count, err := db.PrepareContext(ctx, `SELECT COUNT(*) FROM notes WHERE owner_id = $1`)
	if err != nil {
		return nil, err
	}

	return &Repository{
		db:         db,
		stmtGet:    get,
		stmtUpdate: upd,
		stmtCount:  count,
	}, nil
}

func (r *Repository) Close() error {
	for _, s := range []*sql.Stmt{r.stmtGet, r.stmtUpdate, r.stmtCount} {
		if s != nil {
			_ = s.Close()
		}
	}
	return nil
}

// Create uses explicit transaction: INSERT notes + INSERT audit.
func (r *Repository) Create(ctx context.Context, ownerID int64, title, content string) (Note, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return Note{}, err
	}
	defer tx.Rollback()

	var n Note
	err = tx.QueryRowContext(ctx, `
		INSERT INTO notes (title, content, owner_id) VALUES ($1, $2, $3)
		RETURNING id, title, content, owner_id, created_at
	`, title, content, ownerID).Scan(&n.ID, &n.Title, &n.Content, &n.OwnerID, &n.CreatedAt)
	if err != nil {
		return Note{}, err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO notes_audit (note_id, action) VALUES ($1, $2)`, n.ID, "create")
	if err != nil {
		return Note{}, err
	}

	if err := tx.Commit(); err != nil {
		return Note{}, err
	}
	return n, nil
}

func (r *Repository) Get(ctx context.Context, ownerID, id int64) (Note, error) {
	var n Note
	err := r.stmtGet.QueryRowContext(ctx, id, ownerID).
		Scan(&n.ID, &n.Title, &n.Content, &n.OwnerID, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, sql.ErrNoRows
	}
	return n, err
}

// Update assigns only the non-nil fields; COALESCE keeps the stored value for
// nil arguments. A wrong owner yields sql.ErrNoRows, same as a missing id.
func (r *Repository) Update(ctx context.Context, ownerID, id int64, title, content *string) (Note, error) {
	var n Note
	err := r.stmtUpdate.QueryRowContext(ctx, title, content, id, ownerID).
		Scan(&n.ID, &n.Title, &n.Content, &n.OwnerID, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, sql.ErrNoRows
	}
	return n, err
}

// Delete uses explicit transaction: DELETE note + INSERT audit. No matching
// row rolls back and reports sql.ErrNoRows, so no audit entry is written for
// a missing or foreign-owned note.
func (r *Repository) Delete(ctx context.Context, ownerID, id int64) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	a, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if a == 0 {
		return sql.ErrNoRows
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO notes_audit (note_id, action) VALUES ($1, $2)`, id, "delete")
	if err != nil {
		return err
	}

	return tx.Commit()
}

type ListParams struct {
	Page    int64
	PerPage int64
}

// List returns one page of the owner's notes, newest first, plus the total
// count of the owner's notes. Pages past the end come back empty.
func (r *Repository) List(ctx context.Context, ownerID int64, p ListParams) ([]Note, int64, error) {
	var total int64
	if err := r.stmtCount.QueryRowContext(ctx, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset, ok := pageOffset(p.Page, p.PerPage, total)
	if !ok {
		return []Note{}, total, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, content, owner_id, created_at
		FROM notes
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, ownerID, p.PerPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := scanNotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// pageOffset returns the row offset for page and whether the page holds any
// rows. Pages past the last one report false and are answered with an empty
// slice instead of a query, which also keeps (page-1)*perPage from
// overflowing for absurd page values.
func pageOffset(page, perPage, total int64) (int64, bool) {
	if page < 1 || perPage < 1 {
		return 0, false
	}
	if page > mathx.CeilDiv(total, perPage) {
		return 0, false
	}
	return (page - 1) * perPage, true
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	out := make([]Note, 0, 32)
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.OwnerID, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
