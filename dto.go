package docqa

import (
	"github.com/brunobiangulo/docqa/internal/doc"
	"github.com/brunobiangulo/docqa/internal/options"
)

// DocumentDTO is the wire form of doc.Document, stable independent of
// the internal type's field layout.
type DocumentDTO struct {
	Content  string   `json:"content"`
	Source   string   `json:"source"`
	Page     *int     `json:"page,omitempty"`
	DocType  string   `json:"doc_type,omitempty"`
	Domain   string   `json:"domain,omitempty"`
	Vendor   string   `json:"vendor,omitempty"`
	Product  string   `json:"product,omitempty"`
	Version  string   `json:"version,omitempty"`
	Title    string   `json:"title,omitempty"`
	Section  string   `json:"section,omitempty"`
	Entities []string `json:"entities,omitempty"`
}

// SourceDTO is the wire form of doc.SourceRef.
type SourceDTO struct {
	Filename string `json:"filename"`
	Page     string `json:"page"`
}

// OptionDTO is the wire form of options.Option.
type OptionDTO struct {
	ID      int           `json:"id"`
	Docs    []DocumentDTO `json:"docs"`
	Sources []SourceDTO   `json:"sources"`
	BestL2  float64       `json:"best_l2"`
}

// OutcomeDTO is the wire form of Outcome.
type OutcomeDTO struct {
	RequestID      string        `json:"request_id"`
	Input          string        `json:"input"`
	Status         Status        `json:"status"`
	Docs           []DocumentDTO `json:"docs,omitempty"`
	RefusalReason  string        `json:"refusal_reason,omitempty"`
	Options        []OptionDTO   `json:"options,omitempty"`
	SelectedOption *int          `json:"selected_option,omitempty"`
}

func documentToDTO(d doc.Document) DocumentDTO {
	return DocumentDTO{
		Content: d.Content, Source: d.Source, Page: d.Page,
		DocType: d.DocType, Domain: d.Domain, Vendor: d.Vendor,
		Product: d.Product, Version: d.Version, Title: d.Title,
		Section: d.Section, Entities: d.Entities,
	}
}

func documentFromDTO(d DocumentDTO) doc.Document {
	return doc.Document{
		Content: d.Content, Source: d.Source, Page: d.Page,
		DocType: d.DocType, Domain: d.Domain, Vendor: d.Vendor,
		Product: d.Product, Version: d.Version, Title: d.Title,
		Section: d.Section, Entities: d.Entities,
	}
}

func documentsToDTO(docs []doc.Document) []DocumentDTO {
	out := make([]DocumentDTO, len(docs))
	for i, d := range docs {
		out[i] = documentToDTO(d)
	}
	return out
}

func documentsFromDTO(docs []DocumentDTO) []doc.Document {
	out := make([]doc.Document, len(docs))
	for i, d := range docs {
		out[i] = documentFromDTO(d)
	}
	return out
}

func optionToDTO(o options.Option) OptionDTO {
	sources := make([]SourceDTO, len(o.Sources))
	for i, s := range o.Sources {
		sources[i] = SourceDTO{Filename: s.Filename, Page: s.Page}
	}
	return OptionDTO{ID: o.ID, Docs: documentsToDTO(o.Docs), Sources: sources, BestL2: o.BestL2}
}

// OptionsFromDTO converts a wire-form option list back into
// options.Option, for a second Invoke call that echoes a prior
// ambiguous Outcome's options back.
func OptionsFromDTO(dtos []OptionDTO) []options.Option {
	out := make([]options.Option, len(dtos))
	for i, d := range dtos {
		sources := make([]doc.SourceRef, len(d.Sources))
		for j, s := range d.Sources {
			sources[j] = doc.SourceRef{Filename: s.Filename, Page: s.Page}
		}
		out[i] = options.Option{ID: d.ID, Docs: documentsFromDTO(d.Docs), Sources: sources, BestL2: d.BestL2}
	}
	return out
}

// OutcomeToDTO converts an Outcome to its stable wire form.
func OutcomeToDTO(o Outcome) OutcomeDTO {
	opts := make([]OptionDTO, len(o.Options))
	for i, opt := range o.Options {
		opts[i] = optionToDTO(opt)
	}
	return OutcomeDTO{
		RequestID:      o.RequestID,
		Input:          o.Input,
		Status:         o.Status,
		Docs:           documentsToDTO(o.Docs),
		RefusalReason:  o.RefusalReason,
		Options:        opts,
		SelectedOption: o.SelectedOption,
	}
}
