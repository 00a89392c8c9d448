// Package doc holds the data types shared by every retrieval stage:
// documents, scored documents, and tag signatures. None of these types
// carry behavior beyond what the pipeline needs to compare and bucket
// them — the store and embedder own everything else.
package doc

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Document is an immutable chunk returned by the vector store. Ingestion
// (outside this module) is responsible for populating its fields.
type Document struct {
	Content     string
	Source      string // path or filename, as recorded by ingestion
	Page        *int   // nil when the source format has no pages
	DocType     string
	Domain      string
	Vendor      string
	Product     string
	Version     string
	Title       string
	Section     string
	Entities    []string
	ContentHash string
}

// Filename returns the base name of Source, or "unknown" if empty.
func (d Document) Filename() string {
	if d.Source == "" {
		return "unknown"
	}
	return filepath.Base(d.Source)
}

// PageKey renders Page for use in a (filename, page) identity tuple.
func (d Document) PageKey() string {
	if d.Page == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *d.Page)
}

// SourceKey returns the (filename, page) pair used throughout the
// pipeline to deduplicate and identify documents.
func (d Document) SourceKey() SourceRef {
	return SourceRef{Filename: d.Filename(), Page: d.PageKey()}
}

// EntitySet returns d.Entities as a set for intersection tests.
func (d Document) EntitySet() map[string]struct{} {
	out := make(map[string]struct{}, len(d.Entities))
	for _, e := range d.Entities {
		if e == "" {
			continue
		}
		out[e] = struct{}{}
	}
	return out
}

// SourceRef identifies a document by filename and page for citation and
// deduplication purposes.
type SourceRef struct {
	Filename string
	Page     string
}

// ScoredDocument pairs a Document with its L2 distance from a query
// embedding. Smaller Distance means a better match.
type ScoredDocument struct {
	Doc      Document
	Distance float64
}

// Signature is a fixed-arity tuple of lower-cased curator tags used to
// bucket candidates. Index order is always (domain, doc_type, product,
// vendor, version); core signatures only populate the first three.
type Signature [5]*string

const (
	sigDomain = iota
	sigDocType
	sigProduct
	sigVendor
	sigVersion
)

func norm(s string) *string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return &s
}

// CoreSignature returns the (domain, doc_type, product) signature for d.
func CoreSignature(d Document) Signature {
	return Signature{sigDomain: norm(d.Domain), sigDocType: norm(d.DocType), sigProduct: norm(d.Product)}
}

// StrictSignature returns the (domain, doc_type, product, vendor, version)
// signature for d.
func StrictSignature(d Document) Signature {
	sig := CoreSignature(d)
	sig[sigVendor] = norm(d.Vendor)
	sig[sigVersion] = norm(d.Version)
	return sig
}

// TagSignature selects core or strict signature depending on strict.
func TagSignature(d Document, strict bool) Signature {
	if strict {
		return StrictSignature(d)
	}
	return CoreSignature(d)
}

// IsEmpty reports whether every field of sig is nil.
func (sig Signature) IsEmpty() bool {
	for _, v := range sig {
		if v != nil {
			return false
		}
	}
	return true
}

// SafeSignature returns sig unless it is entirely empty, in which case it
// synthesizes a per-file signature so every source file still forms its
// own bucket (spec.md §3, TagSignature).
func SafeSignature(d Document, strict bool) Signature {
	sig := TagSignature(d, strict)
	if !sig.IsEmpty() {
		return sig
	}
	file := fmt.Sprintf("__file__:%s", d.Filename())
	return Signature{sigDomain: &file}
}

// Key returns a comparable string for use as a map key, since Go cannot
// hash an array of *string pointers by value.
func (sig Signature) Key() string {
	var b strings.Builder
	for i, v := range sig {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		if v != nil {
			b.WriteString(*v)
		}
	}
	return b.String()
}

// Render renders sig as human/embeddable text, e.g.
// "domain: mqtt; doc_type: spec; product: mqtt". Falls back to
// "signature: unknown" when every field is nil.
func (sig Signature) Render() string {
	labels := [...]string{"domain", "doc_type", "product", "vendor", "version"}
	var parts []string
	for i, v := range sig {
		if v == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", labels[i], *v))
	}
	if len(parts) == 0 {
		return "signature: unknown"
	}
	return strings.Join(parts, "; ")
}
