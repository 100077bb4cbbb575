package journal

const schema = `
CREATE TABLE IF NOT EXISTS batches (
    id TEXT PRIMARY KEY,
    input_dir TEXT NOT NULL,
    output_dir TEXT NOT NULL,
    dry_run BOOLEAN DEFAULT FALSE,
    started_at TIMESTAMP,
    finished_at TIMESTAMP,
    total INTEGER DEFAULT 0,
    succeeded INTEGER DEFAULT 0,
    warned INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    input_bytes INTEGER DEFAULT 0,
    output_bytes INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_batches_started_at ON batches(started_at);

CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT NOT NULL REFERENCES batches(id),
    name TEXT NOT NULL,
    status TEXT NOT NULL,
    failure TEXT,
    exit_code INTEGER DEFAULT 0,
    detail TEXT,
    duration_ms INTEGER DEFAULT 0,
    input_bytes INTEGER DEFAULT 0,
    output_bytes INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_items_batch_id ON items(batch_id);
`
