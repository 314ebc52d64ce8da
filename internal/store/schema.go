package store

// Schema holds the DDL for the record store.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    doc_id        TEXT PRIMARY KEY,
    filename      TEXT NOT NULL,
    title         TEXT NOT NULL,
    method        TEXT NOT NULL DEFAULT '',
    content_hash  TEXT NOT NULL,
    source        TEXT NOT NULL DEFAULT '',
    record_json   TEXT NOT NULL,
    created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at DESC);
`
