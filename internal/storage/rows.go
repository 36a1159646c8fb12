package storage

import "database/sql"

// CountRows drains rows, closes them and returns how many were produced.
func CountRows(rows *sql.Rows) (int64, error) {
	defer rows.Close()

	var n int64
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	return n, rows.Close()
}
