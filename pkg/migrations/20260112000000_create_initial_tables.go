package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		stmts := []string{
			`CREATE TABLE library_configs (
				id TEXT PRIMARY KEY,
				pattern TEXT NOT NULL DEFAULT 'SERIES_BASED',
				convert_rar_to_zip BOOLEAN NOT NULL DEFAULT FALSE,
				delete_original_after_convert BOOLEAN NOT NULL DEFAULT FALSE,
				generate_hashes BOOLEAN NOT NULL DEFAULT TRUE,
				process_metadata BOOLEAN NOT NULL DEFAULT TRUE,
				thumbnail_config TEXT,
				ignore_rules TEXT,
				default_reading_direction TEXT NOT NULL DEFAULT 'LTR'
			)`,
			`CREATE TABLE libraries (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				deleted_at TIMESTAMP,
				name TEXT NOT NULL,
				path TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'READY',
				status_message TEXT,
				library_config_id TEXT NOT NULL REFERENCES library_configs (id),
				last_scan_at TIMESTAMP
			)`,
			`CREATE UNIQUE INDEX ux_libraries_name ON libraries (name) WHERE deleted_at IS NULL`,
			`CREATE UNIQUE INDEX ux_libraries_path ON libraries (path) WHERE deleted_at IS NULL`,
			`CREATE TABLE series (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				deleted_at TIMESTAMP,
				library_id TEXT NOT NULL REFERENCES libraries (id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				path TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'READY',
				sort_name TEXT NOT NULL,
				description TEXT,
				cover_image_filename TEXT,
				parsed_year INTEGER,
				parsed_summary TEXT
			)`,
			`CREATE UNIQUE INDEX ux_series_path_library_id ON series (path COLLATE NOCASE, library_id) WHERE deleted_at IS NULL`,
			`CREATE TABLE media (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				deleted_at TIMESTAMP,
				series_id INTEGER NOT NULL REFERENCES series (id) ON DELETE CASCADE,
				filename TEXT NOT NULL,
				extension TEXT NOT NULL,
				path TEXT NOT NULL,
				kind TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'READY',
				size_bytes BIGINT NOT NULL DEFAULT 0,
				page_count INTEGER NOT NULL DEFAULT 0,
				content_hash TEXT,
				modified_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				metadata TEXT,
				page_dimensions TEXT
			)`,
			`CREATE UNIQUE INDEX ux_media_path ON media (path COLLATE NOCASE) WHERE deleted_at IS NULL`,
			`CREATE INDEX ix_media_series_id ON media (series_id) WHERE deleted_at IS NULL`,
			`CREATE TABLE reading_sessions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id TEXT NOT NULL,
				media_id INTEGER NOT NULL REFERENCES media (id) ON DELETE CASCADE,
				page INTEGER,
				cfi TEXT,
				percentage REAL NOT NULL DEFAULT 0,
				finished_at TIMESTAMP
			)`,
			`CREATE UNIQUE INDEX ux_reading_sessions_user_media ON reading_sessions (user_id, media_id)`,
			`CREATE TABLE jobs (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				completed_at TIMESTAMP,
				name TEXT NOT NULL,
				description TEXT,
				type TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'QUEUED',
				library_id TEXT REFERENCES libraries (id),
				elapsed_ms BIGINT NOT NULL DEFAULT 0,
				output TEXT,
				input TEXT
			)`,
			`CREATE INDEX ix_jobs_status ON jobs (status)`,
			`CREATE TABLE job_logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				job_id TEXT NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
				level TEXT NOT NULL,
				message TEXT NOT NULL,
				data TEXT,
				stack_trace TEXT
			)`,
			`CREATE INDEX ix_job_logs_job_id ON job_logs (job_id)`,
		}

		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	down := func(ctx context.Context, db *bun.DB) error {
		tables := []string{"job_logs", "jobs", "reading_sessions", "media", "series", "libraries", "library_configs"}
		for _, t := range tables {
			if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
