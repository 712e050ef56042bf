package keywordindex

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a keyword index backed by a tsvector-indexed chunks table,
// used in place of Index for deployments with a configured Postgres DSN.
// Accumulation semantics mirror Index.Query: per-token postings are looked
// up and hit counts summed per chunk, so callers get the same hit counts
// regardless of backend (the order of the returned hits differs).
//
// Grounded on internal/persistence/databases/postgres_search.go's
// generated-tsvector bootstrap and plainto_tsquery search pattern.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres bootstraps the chunks table (best-effort; ignored if the
// connected role lacks DDL privileges) and returns a ready Postgres index.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	ctx := context.Background()
	_, _ = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS retrieval_chunks (
  chunk_id TEXT PRIMARY KEY,
  text TEXT NOT NULL,
  ts tsvector GENERATED ALWAYS AS (to_tsvector('simple', coalesce(text,''))) STORED
);`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS retrieval_chunks_ts_idx ON retrieval_chunks USING GIN (ts)`)
	return &Postgres{pool: pool}
}

// Add upserts chunkID's text.
func (p *Postgres) Add(ctx context.Context, chunkID, text string) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO retrieval_chunks(chunk_id, text) VALUES ($1, $2)
ON CONFLICT (chunk_id) DO UPDATE SET text = EXCLUDED.text`, chunkID, text)
	return err
}

// Remove deletes chunkID's row.
func (p *Postgres) Remove(ctx context.Context, chunkID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM retrieval_chunks WHERE chunk_id = $1`, chunkID)
	return err
}

// Clear truncates the table, discarding every row.
func (p *Postgres) Clear(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `TRUNCATE TABLE retrieval_chunks`)
	return err
}

// Query accumulates per-chunk hit counts across tokens, one
// plainto_tsquery lookup per token, matching Index.Query's counts. Unlike
// Index.Query, the hits are returned unsorted.
func (p *Postgres) Query(ctx context.Context, tokens []string) ([]Hit, error) {
	counts := make(map[string]int)
	for _, tok := range tokens {
		rows, err := p.pool.Query(ctx, `
SELECT chunk_id FROM retrieval_chunks WHERE ts @@ plainto_tsquery('simple', $1)`, tok)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			counts[id]++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	out := make([]Hit, 0, len(counts))
	for id, c := range counts {
		out = append(out, Hit{ChunkID: id, Count: c})
	}
	return out, nil
}
