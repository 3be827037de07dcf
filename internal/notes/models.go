package notes

import "time"

type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteRequest uses pointers to tell "field absent" from "field empty":
// absent fields stay unchanged, present-but-empty fields reject the update.
type UpdateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// ListResponse is the paginated listing payload.
type ListResponse struct {
	Notes   []Note `json:"notes"`
	Page    int64  `json:"page"`
	PerPage int64  `json:"per_page"`
	Total   int64  `json:"total"`
	Pages   int64  `json:"pages"`
}
