package store

// schema is the bootstrap DDL for the framework's own tables, triggers, and
// stored routines. Migrate executes it at the start of every run, before
// and outside the per-file migration transactions; every statement is
// idempotent (IF NOT EXISTS, CREATE OR REPLACE, DROP TRIGGER IF EXISTS).
// Like the teacher's internal/storage/sqlite/schema.go it is a single Go
// string constant executed verbatim.
//
// Table names are prefixed fby_ to keep them out of the way of whatever
// entity side tables the DSL compiler (internal/dsl) generates.
const schema = `
CREATE TABLE IF NOT EXISTS fby_schema_migration (
	number      INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS fby_projection (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL,
	version INTEGER NOT NULL,
	UNIQUE (name, version)
);

CREATE TABLE IF NOT EXISTS fby_entity (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL,
	version INTEGER NOT NULL,
	UNIQUE (name, version)
);

CREATE TABLE IF NOT EXISTS fby_projection_entity (
	projection_id BIGINT NOT NULL REFERENCES fby_projection(id) ON DELETE CASCADE,
	entity_id     BIGINT NOT NULL REFERENCES fby_entity(id),
	PRIMARY KEY (projection_id, entity_id)
);

CREATE TABLE IF NOT EXISTS fby_change_set (
	id            BIGSERIAL PRIMARY KEY,
	description   TEXT,
	effective     TIMESTAMPTZ NOT NULL,
	last_modified TIMESTAMPTZ NOT NULL DEFAULT now(),
	entity_tag    CHAR(20) NOT NULL DEFAULT encode(gen_random_bytes(10), 'hex')
);

CREATE OR REPLACE FUNCTION fby_touch_change_set() RETURNS TRIGGER AS $$
BEGIN
	NEW.last_modified := now();
	NEW.entity_tag := encode(gen_random_bytes(10), 'hex');
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS fby_change_set_touch ON fby_change_set;
CREATE TRIGGER fby_change_set_touch
	BEFORE INSERT ON fby_change_set
	FOR EACH ROW EXECUTE FUNCTION fby_touch_change_set();

CREATE TABLE IF NOT EXISTS fby_data_frame (
	id            BIGSERIAL PRIMARY KEY,
	change_set_id BIGINT NOT NULL REFERENCES fby_change_set(id),
	entity_id     BIGINT NOT NULL REFERENCES fby_entity(id),
	action        TEXT NOT NULL CHECK (action IN ('POST', 'DELETE'))
);

CREATE INDEX IF NOT EXISTS idx_fby_data_frame_entity ON fby_data_frame(entity_id);
CREATE INDEX IF NOT EXISTS idx_fby_data_frame_change_set ON fby_data_frame(change_set_id);

CREATE TABLE IF NOT EXISTS fby_hook (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	event         TEXT NOT NULL,
	projection_id BIGINT REFERENCES fby_projection(id) ON DELETE CASCADE,
	UNIQUE (name, event, projection_id)
);

-- Postgres never treats two NULLs as equal, so the plain UNIQUE constraint
-- above never fires between two wildcard hooks (projection_id IS NULL).
-- A partial index covers that case explicitly.
CREATE UNIQUE INDEX IF NOT EXISTS idx_fby_hook_wildcard
	ON fby_hook(name, event) WHERE projection_id IS NULL;

CREATE TABLE IF NOT EXISTS fby_notification (
	id             BIGSERIAL PRIMARY KEY,
	hook_id        BIGINT NOT NULL REFERENCES fby_hook(id) ON DELETE CASCADE,
	projection_id  BIGINT NOT NULL REFERENCES fby_projection(id) ON DELETE CASCADE,
	scheduled_for  TIMESTAMPTZ NOT NULL DEFAULT now(),
	attempts       INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'OK')),
	last_attempted TIMESTAMPTZ,
	last_error     TEXT
);

-- At most one row per (hook_id, projection_id, status): enforced with one
-- partial unique index per status. A hook's projection may have both a
-- PENDING and an OK row at once (the OK row retained for the last success,
-- per pass_notification), but never two of either.
CREATE UNIQUE INDEX IF NOT EXISTS idx_fby_notification_pending
	ON fby_notification(hook_id, projection_id) WHERE status = 'PENDING';
CREATE UNIQUE INDEX IF NOT EXISTS idx_fby_notification_ok
	ON fby_notification(hook_id, projection_id) WHERE status = 'OK';

CREATE OR REPLACE FUNCTION fby_schedule_notification(p_hook_id BIGINT, p_projection_id BIGINT)
RETURNS VOID AS $$
BEGIN
	INSERT INTO fby_notification (hook_id, projection_id, scheduled_for, attempts, status, last_error)
	VALUES (p_hook_id, p_projection_id, now(), 0, 'PENDING', NULL)
	ON CONFLICT (hook_id, projection_id) WHERE status = 'PENDING'
	DO UPDATE SET scheduled_for = now(), attempts = 0, last_error = NULL;
EXCEPTION WHEN unique_violation THEN
	UPDATE fby_notification
	SET scheduled_for = now(), attempts = 0, last_error = NULL
	WHERE hook_id = p_hook_id AND projection_id = p_projection_id AND status = 'PENDING';
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION fby_notify(p_entity_name TEXT, p_entity_version INTEGER)
RETURNS VOID AS $$
DECLARE
	r RECORD;
BEGIN
	FOR r IN
		SELECT h.id AS hook_id, p.id AS projection_id
		FROM fby_entity e
		JOIN fby_projection_entity pe ON pe.entity_id = e.id
		JOIN fby_projection p ON p.id = pe.projection_id
		JOIN fby_hook h ON h.projection_id = p.id OR h.projection_id IS NULL
		WHERE e.name = p_entity_name AND e.version = p_entity_version
	LOOP
		PERFORM fby_schedule_notification(r.hook_id, r.projection_id);
	END LOOP;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION fby_data_frame_notify() RETURNS TRIGGER AS $$
DECLARE
	v_name TEXT;
	v_version INTEGER;
BEGIN
	SELECT name, version INTO v_name, v_version FROM fby_entity WHERE id = NEW.entity_id;
	PERFORM fby_notify(v_name, v_version);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS fby_data_frame_after_insert ON fby_data_frame;
CREATE TRIGGER fby_data_frame_after_insert
	AFTER INSERT ON fby_data_frame
	FOR EACH ROW EXECUTE FUNCTION fby_data_frame_notify();

CREATE OR REPLACE FUNCTION fby_get_next_notification(p_max_attempts INTEGER)
RETURNS SETOF fby_notification AS $$
BEGIN
	RETURN QUERY
	SELECT *
	FROM fby_notification
	WHERE status = 'PENDING' AND scheduled_for <= now() AND attempts < p_max_attempts
	ORDER BY scheduled_for ASC, id ASC
	FOR UPDATE SKIP LOCKED
	LIMIT 1;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION fby_pass_notification(p_id BIGINT) RETURNS VOID AS $$
DECLARE
	v_hook_id BIGINT;
	v_projection_id BIGINT;
BEGIN
	SELECT hook_id, projection_id INTO v_hook_id, v_projection_id
	FROM fby_notification WHERE id = p_id;

	DELETE FROM fby_notification
	WHERE hook_id = v_hook_id AND projection_id = v_projection_id AND status = 'OK';

	UPDATE fby_notification
	SET status = 'OK', last_attempted = now(), last_error = NULL
	WHERE id = p_id;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION fby_fail_notification(p_id BIGINT, p_next_scheduled_for TIMESTAMPTZ, p_error TEXT)
RETURNS VOID AS $$
BEGIN
	UPDATE fby_notification
	SET attempts = attempts + 1,
	    scheduled_for = p_next_scheduled_for,
	    last_attempted = now(),
	    last_error = p_error
	WHERE id = p_id;
END;
$$ LANGUAGE plpgsql;
`
