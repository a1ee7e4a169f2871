package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - holds the single previous session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			session_date TEXT NOT NULL,
			max_thumb REAL NOT NULL DEFAULT 0,
			max_index REAL NOT NULL DEFAULT 0,
			max_middle REAL NOT NULL DEFAULT 0,
			max_ring REAL NOT NULL DEFAULT 0,
			max_pinky REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Session rows table - one row per completed rep or posture hold
		`CREATE TABLE IF NOT EXISTS session_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			task_label TEXT NOT NULL,
			rep_index INTEGER NOT NULL,
			channel TEXT NOT NULL,
			event_kind TEXT NOT NULL CHECK(event_kind IN ('PinchRep', 'PostureHold')),
			duration_seconds REAL NOT NULL,
			observed_strength REAL NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_session_rows_session_id ON session_rows(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
