package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher with PostgreSQL full-text search over the
// generated fts column of the documents table.
type PgFTS struct {
	db        *sql.DB
	postsPath string
	faqPath   string
}

func NewPgFTS(db *sql.DB, postsPath, faqPath string) *PgFTS {
	return &PgFTS{db: db, postsPath: postsPath, faqPath: faqPath}
}

// Healthy always returns true; without Postgres nothing else works either.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(q.Offset, 0)

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultPost {
		args = append(args, p.postsPath)
		where := fmt.Sprintf("d.collection = $%d AND d.fts @@ %s", len(args), tsQuery)
		if q.PublicOnly {
			where += " AND d.data->>'status' = 'published'"
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'post'::text AS type, d.id,
				coalesce(d.data->>'title', '') AS title,
				ts_headline('english', coalesce(d.data->>'excerpt', ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				coalesce(d.data->>'slug', '') AS slug,
				ts_rank(d.fts, %s) AS rank
			FROM documents d
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultFAQ {
		args = append(args, p.faqPath)
		where := fmt.Sprintf("d.collection = $%d AND d.fts @@ %s", len(args), tsQuery)
		if q.PublicOnly {
			where += " AND coalesce((d.data->>'visible')::boolean, false)"
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'faq'::text AS type, d.id,
				coalesce(d.data->>'question', '') AS title,
				ts_headline('english', coalesce(d.data->>'answer', ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS slug,
				ts_rank(d.fts, %s) AS rank
			FROM documents d
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}
	union := strings.Join(subQueries, " UNION ALL ")

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM ("+union+") sub", args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT type, id, title, snippet, slug
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Slug); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, total, rows.Err()
}
