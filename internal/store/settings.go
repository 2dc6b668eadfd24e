package store

import (
	"database/sql"
	"log"
)

// SettingsRepository provides namespaced per-plugin settings access. It
// implements the engine's SettingsStore contract: Get never fails and Set is
// fire-and-forget from the caller's perspective.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the stored value for (pluginName, key), or defaultValue when
// the entry is missing or the read fails. Typed parsing and validation are
// the plugin's responsibility.
func (r *SettingsRepository) Get(pluginName, key, defaultValue string) string {
	var value string
	err := r.db.QueryRow(
		`SELECT value FROM settings WHERE plugin_name = ? AND key = ?`,
		pluginName, key,
	).Scan(&value)
	if err != nil {
		return defaultValue
	}
	return value
}

// Set stores a value for (pluginName, key), overwriting any previous value.
// Failures are logged, not returned; durability belongs to the store.
func (r *SettingsRepository) Set(pluginName, key, value string) {
	_, err := r.db.Exec(
		`INSERT INTO settings (plugin_name, key, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(plugin_name, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		pluginName, key, value,
	)
	if err != nil {
		log.Printf("settings: failed to save %s/%s: %v", pluginName, key, err)
	}
}

// List returns all settings for one plugin as a key/value map.
func (r *SettingsRepository) List(pluginName string) (map[string]string, error) {
	rows, err := r.db.Query(
		`SELECT key, value FROM settings WHERE plugin_name = ? ORDER BY key`,
		pluginName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return values, nil
}

// Delete removes one setting. Missing entries are not an error.
func (r *SettingsRepository) Delete(pluginName, key string) error {
	_, err := r.db.Exec(
		`DELETE FROM settings WHERE plugin_name = ? AND key = ?`,
		pluginName, key,
	)
	return err
}
