package repository

// migration is one schema version. Statements run in order; the DDL sticks
// to what both sqlite and mysql accept.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS reminder_lists (
				id         VARCHAR(64)  NOT NULL PRIMARY KEY,
				title      VARCHAR(255) NOT NULL,
				color      VARCHAR(16)  NOT NULL DEFAULT '',
				sort_index INTEGER      NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS reminders (
				id           VARCHAR(64)   NOT NULL PRIMARY KEY,
				list_id      VARCHAR(64)   NOT NULL,
				title        VARCHAR(1024) NOT NULL,
				notes        TEXT          NOT NULL,
				is_completed BOOLEAN       NOT NULL DEFAULT FALSE,
				priority     INTEGER       NOT NULL DEFAULT 0,
				due_at       BIGINT        NULL,
				completed_at BIGINT        NULL,
				created_at   BIGINT        NOT NULL,
				FOREIGN KEY (list_id) REFERENCES reminder_lists(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX idx_reminders_list ON reminders (list_id, created_at)`,
			`CREATE TABLE IF NOT EXISTS calendars (
				id         VARCHAR(64)  NOT NULL PRIMARY KEY,
				title      VARCHAR(255) NOT NULL,
				color      VARCHAR(16)  NOT NULL DEFAULT '',
				sort_index INTEGER      NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS events (
				id          VARCHAR(64)   NOT NULL PRIMARY KEY,
				calendar_id VARCHAR(64)   NOT NULL,
				title       VARCHAR(1024) NOT NULL,
				notes       TEXT          NOT NULL,
				location    VARCHAR(1024) NOT NULL DEFAULT '',
				start_at    BIGINT        NOT NULL,
				end_at      BIGINT        NOT NULL,
				all_day     BOOLEAN       NOT NULL DEFAULT FALSE,
				rrule       VARCHAR(512)  NOT NULL DEFAULT '',
				FOREIGN KEY (calendar_id) REFERENCES calendars(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX idx_events_calendar ON events (calendar_id, start_at)`,
			`CREATE TABLE IF NOT EXISTS event_exceptions (
				series_id        VARCHAR(64)   NOT NULL,
				occurrence_start BIGINT        NOT NULL,
				cancelled        BOOLEAN       NOT NULL DEFAULT FALSE,
				title            VARCHAR(1024) NOT NULL DEFAULT '',
				notes            TEXT          NOT NULL,
				location         VARCHAR(1024) NOT NULL DEFAULT '',
				start_at         BIGINT        NOT NULL,
				end_at           BIGINT        NOT NULL,
				all_day          BOOLEAN       NOT NULL DEFAULT FALSE,
				PRIMARY KEY (series_id, occurrence_start),
				FOREIGN KEY (series_id) REFERENCES events(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS albums (
				id         VARCHAR(64)  NOT NULL PRIMARY KEY,
				title      VARCHAR(255) NOT NULL,
				album_type VARCHAR(16)  NOT NULL DEFAULT 'user',
				sort_index INTEGER      NOT NULL DEFAULT 0,
				start_at   BIGINT       NULL,
				end_at     BIGINT       NULL
			)`,
			`CREATE TABLE IF NOT EXISTS photos (
				id           VARCHAR(64)  NOT NULL PRIMARY KEY,
				album_id     VARCHAR(64)  NOT NULL,
				sort_index   INTEGER      NOT NULL DEFAULT 0,
				media_type   VARCHAR(16)  NOT NULL,
				created_at   BIGINT       NOT NULL,
				modified_at  BIGINT       NULL,
				width        INTEGER      NOT NULL DEFAULT 0,
				height       INTEGER      NOT NULL DEFAULT 0,
				is_favorite  BOOLEAN      NOT NULL DEFAULT FALSE,
				is_hidden    BOOLEAN      NOT NULL DEFAULT FALSE,
				filename     VARCHAR(255) NOT NULL DEFAULT '',
				file_size    BIGINT       NOT NULL DEFAULT 0,
				image_format VARCHAR(8)   NOT NULL DEFAULT 'jpeg',
				video_format VARCHAR(8)   NOT NULL DEFAULT 'mp4',
				cloud_key    VARCHAR(255) NOT NULL DEFAULT '',
				FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX idx_photos_album ON photos (album_id, sort_index)`,
		},
	},
}
