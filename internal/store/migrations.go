package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - per-plugin key/value configuration, always
		// string-typed at the storage boundary
		`CREATE TABLE IF NOT EXISTS settings (
			plugin_name TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (plugin_name, key)
		)`,

		// Telemetry events table - append-only structured event log
		`CREATE TABLE IF NOT EXISTS telemetry_events (
			id TEXT PRIMARY KEY,
			plugin_name TEXT NOT NULL,
			event TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_telemetry_events_plugin_name ON telemetry_events(plugin_name)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_events_created_at ON telemetry_events(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
