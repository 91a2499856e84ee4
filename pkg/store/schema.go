package store

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

-- Distinct recovered documents, keyed by content fingerprint
CREATE TABLE IF NOT EXISTS documents (
    fingerprint TEXT PRIMARY KEY,
    body BLOB NOT NULL,      -- zstd-compressed JSON {"html", "css", "js"}
    size INTEGER NOT NULL,   -- uncompressed JSON bytes
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- One row per finished generation request
CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    provider TEXT,
    model TEXT,
    prompt TEXT,

    -- Set when a document was recovered
    fingerprint TEXT,

    -- Set when recovery failed
    reason TEXT,
    message TEXT,
    excerpt TEXT,
    salvaged TEXT,           -- JSON object of partially read fields

    transport_error TEXT,
    chunks INTEGER DEFAULT 0,
    bytes INTEGER DEFAULT 0,

    FOREIGN KEY (fingerprint) REFERENCES documents(fingerprint)
);

CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
CREATE INDEX IF NOT EXISTS idx_generations_fingerprint ON generations(fingerprint);
CREATE INDEX IF NOT EXISTS idx_generations_reason ON generations(reason) WHERE reason IS NOT NULL;
`
