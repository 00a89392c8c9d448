// Package vecstore is the reference retrieve.Store backing: a SQLite
// database holding documents and chunks, with chunk embeddings indexed
// by sqlite-vec's vec0 virtual table for exact KNN search. It embeds
// each query with the configured embedproviders.Provider and returns
// distances exactly as vec0 computes them (L2, unmodified) so the
// gate/ambiguity thresholds in internal/gate operate on the same
// metric they were tuned against.
package vecstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/brunobiangulo/docqa/embedproviders"
	"github.com/brunobiangulo/docqa/internal/doc"
)

func init() {
	sqlite_vec.Auto()
}

// Document is a row in the documents table, the ingestion-side
// counterpart of doc.Document.
type Document struct {
	ID          int64
	Path        string
	Filename    string
	ContentHash string
	DocType     string
	Domain      string
	Vendor      string
	Product     string
	Version     string
	Title       string
}

// Chunk is a row in the chunks table, carrying one retrievable unit of
// a document plus the entity tags EntityAugmenter and CoverageGate key
// off of.
type Chunk struct {
	ID          int64
	DocumentID  int64
	Content     string
	Section     string
	PageNumber  int
	Entities    []string
	ContentHash string
}

// VectorStore wraps the SQLite database and embedding provider used
// for both ingestion and retrieval.
type VectorStore struct {
	db           *sql.DB
	embedder     embedproviders.Provider
	embeddingDim int
}

// New opens (or creates) a SQLite database at dbPath, initializes the
// schema and vec0 virtual table for embeddingDim-wide vectors, and
// wires embedder for query-time embedding.
func New(dbPath string, embeddingDim int, embedder embedproviders.Provider) (*VectorStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("vecstore: creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("vecstore: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("vecstore: pinging database: %w", err)
	}
	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("vecstore: creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &VectorStore{db: db, embedder: embedder, embeddingDim: embeddingDim}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("vecstore: running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *VectorStore) Close() error { return s.db.Close() }

// DB returns the underlying *sql.DB for ingestion tooling that needs
// lower-level access than VectorStore exposes.
func (s *VectorStore) DB() *sql.DB { return s.db }

// UpsertDocument inserts or updates a document record, returning its ID.
func (s *VectorStore) UpsertDocument(ctx context.Context, d Document) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (path, filename, content_hash, doc_type, domain, vendor, product, version, title)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			content_hash = excluded.content_hash,
			doc_type = excluded.doc_type,
			domain = excluded.domain,
			vendor = excluded.vendor,
			product = excluded.product,
			version = excluded.version,
			title = excluded.title,
			updated_at = CURRENT_TIMESTAMP
	`, d.Path, d.Filename, d.ContentHash, d.DocType, d.Domain, d.Vendor, d.Product, d.Version, d.Title)
	if err != nil {
		return 0, fmt.Errorf("vecstore: upserting document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("vecstore: reading inserted document id: %w", err)
	}
	if id == 0 {
		row := s.db.QueryRowContext(ctx, "SELECT id FROM documents WHERE path = ?", d.Path)
		if err := row.Scan(&id); err != nil {
			return 0, fmt.Errorf("vecstore: resolving existing document id: %w", err)
		}
	}
	return id, nil
}

// InsertChunks inserts chunks in a single transaction, stamping each
// with a content hash, and returns their assigned IDs in order.
func (s *VectorStore) InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (document_id, content, section, page_number, entities, content_hash)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range chunks {
			hash := sha256.Sum256([]byte(c.Content))
			entitiesJSON, err := json.Marshal(c.Entities)
			if err != nil {
				return fmt.Errorf("encoding entities: %w", err)
			}
			res, err := stmt.ExecContext(ctx, c.DocumentID, c.Content, c.Section, c.PageNumber,
				string(entitiesJSON), hex.EncodeToString(hash[:]))
			if err != nil {
				return err
			}
			ids[i], err = res.LastInsertId()
			if err != nil {
				return err
			}
		}
		return nil
	})

	return ids, err
}

// InsertEmbedding stores a vector embedding for a chunk.
func (s *VectorStore) InsertEmbedding(ctx context.Context, chunkID int64, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
		chunkID, serializeFloat32(embedding))
	return err
}

// SimilaritySearchWithScore implements retrieve.Store: it embeds query,
// runs a vec0 KNN search for the k nearest chunks, and returns them as
// doc.ScoredDocument with Distance exactly as vec0 reports it.
func (s *VectorStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]doc.ScoredDocument, error) {
	vectors, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("vecstore: embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("vecstore: embedder returned no vector for query")
	}
	queryVec := toFloat32(vectors[0])

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.distance,
			c.content, c.section, c.page_number, c.entities,
			d.filename, d.path, d.doc_type, d.domain, d.vendor, d.product, d.version, d.title
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryVec), k)
	if err != nil {
		return nil, fmt.Errorf("vecstore: vector search: %w", err)
	}
	defer rows.Close()

	var out []doc.ScoredDocument
	for rows.Next() {
		var (
			distance                                        float64
			content, section, entitiesJSON                  string
			page                                             sql.NullInt64
			filename, path, docType, domain, vendor, product string
			version, title                                   string
		)
		if err := rows.Scan(&distance, &content, &section, &page, &entitiesJSON,
			&filename, &path, &docType, &domain, &vendor, &product, &version, &title); err != nil {
			return nil, fmt.Errorf("vecstore: scanning search row: %w", err)
		}

		var entities []string
		if entitiesJSON != "" {
			if err := json.Unmarshal([]byte(entitiesJSON), &entities); err != nil {
				return nil, fmt.Errorf("vecstore: decoding entities: %w", err)
			}
		}

		d := doc.Document{
			Content:  content,
			Source:   path,
			DocType:  docType,
			Domain:   domain,
			Vendor:   vendor,
			Product:  product,
			Version:  version,
			Title:    title,
			Section:  section,
			Entities: entities,
		}
		if page.Valid {
			p := int(page.Int64)
			d.Page = &p
		}
		_ = filename // derivable from d.Filename(); path is the source of truth

		out = append(out, doc.ScoredDocument{Doc: d, Distance: distance})
	}
	return out, rows.Err()
}

func (s *VectorStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
