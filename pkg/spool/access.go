package spool

import (
	"log"
	"time"
)

// Enqueue stores one line-protocol record for a bucket that could not
// be written.
func Enqueue(bucket, line string) error {
	db := GetDB()
	_, err := db.Exec(
		"INSERT INTO spooled_points (bucket, line, queued_at) VALUES (?, ?, ?)",
		bucket,
		line,
		time.Now().Unix(),
	)
	return err
}

// Drain replays every spooled record for the bucket through write, in
// queue order. Records that write successfully are deleted; draining
// stops at the first failure so ordering is preserved for the rest.
func Drain(bucket string, write func(line string) error) error {
	db := GetDB()
	rows, err := db.Query(
		"SELECT id, line FROM spooled_points WHERE bucket = ? ORDER BY id ASC",
		bucket,
	)
	if err != nil {
		return err
	}

	type row struct {
		id   int64
		line string
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.line); err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, r)
	}
	rows.Close()

	for _, r := range pending {
		if err := write(r.line); err != nil {
			return err
		}
		if _, err := db.Exec("DELETE FROM spooled_points WHERE id = ?", r.id); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		log.Printf("Drained %d spooled points for bucket %s", len(pending), bucket)
	}
	return nil
}

// Count returns the number of spooled records for the bucket.
func Count(bucket string) (int, error) {
	db := GetDB()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM spooled_points WHERE bucket = ?", bucket).Scan(&n)
	return n, err
}
