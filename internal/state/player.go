package state

import (
	"database/sql"
	"errors"
	"time"

	"github.com/tlagarde/chorus/internal/media"
	"github.com/tlagarde/chorus/internal/queue"
)

// PlayerState is the saved shape of the player.
type PlayerState struct {
	CurrentIndex int
	Repeat       queue.RepeatMode
	Shuffle      bool
	Volume       int
	Tracks       []media.Track
}

func getPlayer(db *sql.DB) (*PlayerState, error) {
	state := &PlayerState{CurrentIndex: -1, Volume: 100}

	var repeatMode int
	row := db.QueryRow(`SELECT current_index, repeat_mode, shuffle, volume FROM player_state WHERE id = 1`)
	err := row.Scan(&state.CurrentIndex, &repeatMode, &state.Shuffle, &state.Volume)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}
	state.Repeat = queue.RepeatMode(repeatMode)

	rows, err := db.Query(`
		SELECT track_id, source, title, artist, duration_ms, locator
		FROM queue_tracks
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t media.Track
		var source int
		var artist sql.NullString
		var durationMS int64
		if err := rows.Scan(&t.ID, &source, &t.Title, &artist, &durationMS, &t.Locator); err != nil {
			return nil, err
		}
		t.Source = media.Source(source)
		t.Artist = artist.String
		t.Duration = time.Duration(durationMS) * time.Millisecond
		state.Tracks = append(state.Tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return state, nil
}

func savePlayer(db *sql.DB, state PlayerState) error {
	return withTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM queue_tracks`); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO player_state (id, current_index, repeat_mode, shuffle, volume)
			VALUES (1, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				repeat_mode = excluded.repeat_mode,
				shuffle = excluded.shuffle,
				volume = excluded.volume
		`, state.CurrentIndex, int(state.Repeat), state.Shuffle, state.Volume)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_tracks (position, track_id, source, title, artist, duration_ms, locator)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range state.Tracks {
			_, err = stmt.Exec(i, t.ID, int(t.Source), t.Title, t.Artist,
				t.Duration.Milliseconds(), t.Locator)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
