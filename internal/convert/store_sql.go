package convert

import (
	"context"
	"database/sql"
	"errors"
)

// SQLStore persists conversions through database/sql. Placeholders are
// written in postgres style; modernc sqlite accepts $n as well.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutConversion(c Conversion) error {
	_, err := s.db.Exec(`INSERT INTO conversions (id,source_name,source_kind,status,moodle_xml,error,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, moodle_xml=EXCLUDED.moodle_xml, error=EXCLUDED.error`,
		c.ID, c.SourceName, c.SourceKind, c.Status, c.MoodleXML, c.Error, c.CreatedAt)
	return err
}

func (s *SQLStore) GetConversion(id string) (Conversion, error) {
	row := s.db.QueryRow(`SELECT id,source_name,source_kind,status,moodle_xml,error,created_at
		FROM conversions WHERE id=$1`, id)
	var c Conversion
	var xml, errMsg sql.NullString
	if err := row.Scan(&c.ID, &c.SourceName, &c.SourceKind, &c.Status, &xml, &errMsg, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversion{}, errors.New("conversion not found")
		}
		return Conversion{}, err
	}
	c.MoodleXML = xml.String
	c.Error = errMsg.String
	return c, nil
}

func (s *SQLStore) ListConversions(ctx context.Context, opts ListOpts) ([]Conversion, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,source_name,source_kind,status,moodle_xml,error,created_at
		FROM conversions ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		var c Conversion
		var xml, errMsg sql.NullString
		if err := rows.Scan(&c.ID, &c.SourceName, &c.SourceKind, &c.Status, &xml, &errMsg, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.MoodleXML = xml.String
		c.Error = errMsg.String
		out = append(out, c)
	}
	return out, rows.Err()
}
