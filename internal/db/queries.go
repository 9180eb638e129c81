package db

const (
	CreateMigrationsTable = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`

	InsertMigration = `INSERT INTO schema_migrations (version) VALUES (?)`

	GetAppliedMigrations = `
		SELECT version FROM schema_migrations
	`
)

const (
	IncrementPrintCounter = `
		INSERT INTO print_counters (printer_name, date, count)
		VALUES (?, ?, ?)
		ON CONFLICT(printer_name, date) DO UPDATE SET count = count + excluded.count
	`

	GetPrintCountersSince = `
		SELECT printer_name, date, count
		FROM print_counters WHERE printer_name = ? AND date >= ? ORDER BY date DESC
	`

	SumPrintCounters = `
		SELECT COALESCE(SUM(count), 0) FROM print_counters WHERE printer_name = ?
	`
)
