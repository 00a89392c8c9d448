package vecstore

import "fmt"

// schemaSQL returns the DDL for the document, chunk, and vector tables.
// embeddingDim controls the vec0 virtual table dimension. Unlike the
// full goreason schema, there is no FTS5 index or knowledge-graph
// tables: retrieval in this module runs entirely on L2 vector distance.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    filename TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    doc_type TEXT,
    domain TEXT,
    vendor TEXT,
    product TEXT,
    version TEXT,
    title TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    content TEXT NOT NULL,
    section TEXT,
    page_number INTEGER,
    entities JSON,
    content_hash TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
`, embeddingDim)
}
