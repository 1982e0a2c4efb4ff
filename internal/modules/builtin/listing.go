package builtin

import (
	"context"

	"github.com/conneroisu/strata/internal/conftree"
	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/query"
	"github.com/conneroisu/strata/internal/store"
	"github.com/conneroisu/strata/internal/types"
)

// ListingName is the record type of generated listing pages.
const ListingName = "listing"

// DefaultPerPage is the page size of a listing without per_page.
const DefaultPerPage = 10

// Listing registers one dynamic record per entry under "listings:" in the
// site config:
//
//	listings:
//	  blog:
//	    query: (pages:: tags in blog)
//	    url: /blog/
//	    per_page: 5
//	    title: Blog
//
// The build expands each record into paginated output once every module
// has loaded.
type Listing struct {
	env  Env
	deps []string
}

// NewListing returns the listing module. It always depends on pages.
func NewListing(env Env) *Listing {
	return &Listing{env: env, deps: env.dependencies(ListingName, PagesName)}
}

func (m *Listing) Name() string           { return ListingName }
func (m *Listing) Dependencies() []string { return append([]string(nil), m.deps...) }

// Schema implements modules.SchemaProvider.
func (m *Listing) Schema() types.Schema {
	return types.Schema{
		"name":     types.FieldText,
		"query":    types.FieldText,
		"per_page": types.FieldInteger,
		"title":    types.FieldText,
	}
}

// Load validates each listing query against the declared record types and
// registers the listing records.
func (m *Listing) Load(_ context.Context, s *store.Store) error {
	if m.env.Site == nil {
		return nil
	}

	listings, ok := m.env.Site.Sub("listings")
	if !ok {
		return nil
	}

	file := m.env.Site.File()

	for _, name := range listings.Keys() {
		entry, ok := listings.Sub(name)
		if !ok {
			return siteerrors.NewConfigError("listings."+name, "listing must be a block with query and url")
		}

		// An unquoted query with commas reads as a list; its source text is
		// the query as written.
		var text string
		if v, ok := entry.Get("query"); ok && v.Kind() != conftree.KindMap {
			text = v.Text()
		}
		if text == "" {
			return siteerrors.NewConfigError("listings."+name+".query", "listing has no query")
		}

		if _, err := query.Parse(text, s); err != nil {
			return siteerrors.NewConfigError("listings."+name+".query", "invalid listing query").WithCause(err)
		}

		url := entry.String("url")
		if url == "" {
			url = "/" + name + "/"
		}

		perPage := int64(DefaultPerPage)
		if v, ok := entry.Get("per_page"); ok {
			n, isInt := v.AsInt()
			if !isInt || n < 1 {
				return siteerrors.NewConfigError("listings."+name+".per_page", "per_page must be a positive integer")
			}
			perPage = n
		}

		title := entry.String("title")
		if title == "" {
			title = TitleFromName(name)
		}

		rec := &types.Record{
			ID:      ListingName + ":" + name,
			URL:     url,
			Module:  ListingName,
			Dynamic: true,
			Source:  file,
			Fields: types.Fields{
				"name":     types.Text(name),
				"query":    types.Text(text),
				"per_page": types.Int(perPage),
				"title":    types.Text(title),
			},
		}

		if err := s.Register(rec); err != nil {
			return err
		}
	}

	return nil
}
