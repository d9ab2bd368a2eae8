package traffic

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// History persists derived samples to sqlite so the performance view can
// chart ranges longer than the in-memory window. Shared across sessions;
// it stores derived rates only, never credentials or raw session state.
type History struct {
	logger    zerolog.Logger
	db        *sql.DB
	retention time.Duration
	stop      chan struct{}
}

// NewHistory opens (or creates) the sample database under dataPath.
func NewHistory(logger zerolog.Logger, dataPath string) (*History, error) {
	dbPath := filepath.Join(dataPath, "traffic.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open traffic history: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS samples (
		iface TEXT NOT NULL,
		ts INTEGER NOT NULL,
		rx_bps REAL NOT NULL,
		tx_bps REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_samples_iface_ts ON samples (iface, ts)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	h := &History{
		logger:    logger.With().Str("component", "traffic-history").Logger(),
		db:        db,
		retention: 7 * 24 * time.Hour,
		stop:      make(chan struct{}),
	}
	go h.pruneLoop()
	return h, nil
}

// Record stores one sample for iface.
func (h *History) Record(iface string, s Sample) error {
	_, err := h.db.Exec(
		"INSERT INTO samples (iface, ts, rx_bps, tx_bps) VALUES (?, ?, ?, ?)",
		iface, s.At.Unix(), s.RxBps, s.TxBps,
	)
	return err
}

// Range returns samples for iface between from and to, oldest first.
func (h *History) Range(iface string, from, to time.Time) ([]Sample, error) {
	rows, err := h.db.Query(
		"SELECT ts, rx_bps, tx_bps FROM samples WHERE iface = ? AND ts >= ? AND ts <= ? ORDER BY ts",
		iface, from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var ts int64
		var s Sample
		if err := rows.Scan(&ts, &s.RxBps, &s.TxBps); err != nil {
			return nil, err
		}
		s.At = time.Unix(ts, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (h *History) pruneLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.prune()
		}
	}
}

func (h *History) prune() {
	cutoff := time.Now().Add(-h.retention).Unix()
	res, err := h.db.Exec("DELETE FROM samples WHERE ts < ?", cutoff)
	if err != nil {
		h.logger.Error().Err(err).Msg("prune failed")
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		h.logger.Debug().Int64("rows", n).Msg("pruned old samples")
	}
}

// Close stops the prune loop and closes the database.
func (h *History) Close() error {
	close(h.stop)
	return h.db.Close()
}
