package store

// schemaVersion is written to meta(key="schema_version") after the DDL
// below is applied; future additive changes bump this and append ALTER
// statements rather than rewriting the CREATE TABLE strings in place.
const schemaVersion = "1"

// schemaDDL creates every table otell needs, forward-only: always
// CREATE TABLE IF NOT EXISTS, never DROP or redefine a column in place.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   VARCHAR PRIMARY KEY,
	value VARCHAR
);

CREATE TABLE IF NOT EXISTS logs (
	ts         BIGINT NOT NULL,
	service    VARCHAR,
	severity   INTEGER NOT NULL,
	trace_id   VARCHAR,
	span_id    VARCHAR,
	body       VARCHAR NOT NULL,
	attrs_json VARCHAR NOT NULL,
	attrs_text VARCHAR NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_logs_ts ON logs(ts);
CREATE INDEX IF NOT EXISTS idx_logs_service_ts ON logs(service, ts);
CREATE INDEX IF NOT EXISTS idx_logs_trace_span ON logs(trace_id, span_id);

CREATE TABLE IF NOT EXISTS spans (
	trace_id       VARCHAR NOT NULL,
	span_id        VARCHAR NOT NULL,
	parent_span_id VARCHAR,
	service        VARCHAR,
	name           VARCHAR NOT NULL,
	kind           INTEGER NOT NULL,
	start_ts       BIGINT NOT NULL,
	end_ts         BIGINT NOT NULL,
	status         INTEGER NOT NULL,
	status_message VARCHAR NOT NULL,
	attrs_json     VARCHAR NOT NULL,
	attrs_text     VARCHAR NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_spans_trace ON spans(trace_id);
CREATE INDEX IF NOT EXISTS idx_spans_service_start ON spans(service, start_ts);
CREATE INDEX IF NOT EXISTS idx_spans_end ON spans(end_ts);

CREATE TABLE IF NOT EXISTS span_events (
	trace_id   VARCHAR NOT NULL,
	span_id    VARCHAR NOT NULL,
	seq        INTEGER NOT NULL,
	ts         BIGINT NOT NULL,
	name       VARCHAR NOT NULL,
	attrs_json VARCHAR NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_span_events_span ON span_events(trace_id, span_id);

CREATE TABLE IF NOT EXISTS span_links (
	trace_id        VARCHAR NOT NULL,
	span_id         VARCHAR NOT NULL,
	seq             INTEGER NOT NULL,
	link_trace_id   VARCHAR NOT NULL,
	link_span_id    VARCHAR NOT NULL,
	attrs_json      VARCHAR NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_span_links_span ON span_links(trace_id, span_id);

CREATE TABLE IF NOT EXISTS metric_points (
	name       VARCHAR NOT NULL,
	service    VARCHAR,
	ts         BIGINT NOT NULL,
	value      DOUBLE NOT NULL,
	kind       INTEGER NOT NULL,
	stat       VARCHAR NOT NULL,
	attrs_json VARCHAR NOT NULL,
	attrs_text VARCHAR NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metric_points_name_ts ON metric_points(name, ts);
CREATE INDEX IF NOT EXISTS idx_metric_points_name_service_ts ON metric_points(name, service, ts);
`
