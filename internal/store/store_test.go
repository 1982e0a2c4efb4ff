package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/types"
)

func newStore(t *testing.T, modules ...string) *Store {
	t.Helper()
	s := New()
	for _, m := range modules {
		s.DeclareType(m)
	}

	return s
}

func TestRegisterAndLookup(t *testing.T) {
	s := newStore(t, "pages")

	rec := &types.Record{ID: "home", Module: "pages", URL: "index/", Path: "./content/index.md"}
	require.NoError(t, s.Register(rec))

	assert.Equal(t, "/index/", rec.URL)
	assert.Equal(t, "content/index.md", rec.Path)

	got, ok := s.GetByID("pages", "home")
	require.True(t, ok)
	assert.Same(t, rec, got)

	got, ok = s.GetByID("", "home")
	require.True(t, ok)
	assert.Same(t, rec, got)

	_, ok = s.GetByID("data", "home")
	assert.False(t, ok)

	got, ok = s.GetByURL("/index/")
	require.True(t, ok)
	assert.Same(t, rec, got)

	got, ok = s.GetByPath("content/../content/index.md")
	require.True(t, ok)
	assert.Same(t, rec, got)

	_, ok = s.GetByURL("/missing/")
	assert.False(t, ok)
	_, ok = s.GetByPath("nowhere.md")
	assert.False(t, ok)
}

func TestRegisterDuplicatesLeaveIndicesUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		record *types.Record
		target error
	}{
		{
			name:   "duplicate id",
			record: &types.Record{ID: "a", Module: "pages", URL: "/other/", Path: "other.md"},
			target: siteerrors.ErrDuplicateID,
		},
		{
			name:   "duplicate path",
			record: &types.Record{ID: "b", Module: "pages", URL: "/other/", Path: "a.md"},
			target: siteerrors.ErrDuplicatePath,
		},
		{
			name:   "duplicate url",
			record: &types.Record{ID: "b", Module: "pages", URL: "/a", Path: "other.md"},
			target: siteerrors.ErrDuplicateURL,
		},
		{
			name:   "id checked before url",
			record: &types.Record{ID: "a", Module: "pages", URL: "/a/"},
			target: siteerrors.ErrDuplicateID,
		},
		{
			name:   "path checked before url",
			record: &types.Record{Module: "pages", URL: "/a/", Path: "a.md"},
			target: siteerrors.ErrDuplicatePath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, "pages")
			require.NoError(t, s.Register(&types.Record{ID: "a", Module: "pages", URL: "/a", Path: "a.md", Dynamic: true}))

			before := s.Stats()
			err := s.Register(tt.record)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), err.Error())
			assert.True(t, siteerrors.IsDuplicate(err))
			assert.Equal(t, before, s.Stats())

			_, ok := s.GetByURL("/other/")
			assert.False(t, ok)
			_, ok = s.GetByID("", "b")
			assert.False(t, ok)
		})
	}
}

func TestRegisterPreconditions(t *testing.T) {
	s := newStore(t, "pages")

	tests := []struct {
		name   string
		record *types.Record
	}{
		{"nil record", nil},
		{"undeclared module", &types.Record{Module: "ghost", URL: "/g/"}},
		{"missing url", &types.Record{Module: "pages"}},
		{"escaping path", &types.Record{Module: "pages", URL: "/x/", Path: "../x.md"}},
		{"escaping url", &types.Record{Module: "pages", URL: "/../x/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Register(tt.record)
			assert.True(t, errors.Is(err, siteerrors.ErrPrecondition))
		})
	}

	assert.Equal(t, Stats{Types: 1}, s.Stats())
}

func TestIterationOrderAndDynamic(t *testing.T) {
	s := newStore(t, "pages", "listing")

	urls := []string{"/c/", "/a/", "/b/"}
	for i, u := range urls {
		require.NoError(t, s.Register(&types.Record{Module: "pages", URL: u, Dynamic: i == 1}))
	}
	require.NoError(t, s.Register(&types.Record{Module: "listing", URL: "/blog/", Dynamic: true}))

	var all []string
	for rec := range s.All() {
		all = append(all, rec.URL)
	}
	assert.Equal(t, []string{"/c/", "/a/", "/b/", "/blog/"}, all)

	var dynamic []string
	for rec := range s.Dynamic() {
		dynamic = append(dynamic, rec.URL)
	}
	assert.Equal(t, []string{"/a/", "/blog/"}, dynamic)

	// restartable
	count := 0
	seq := s.All()
	for range seq {
		count++
	}
	for range seq {
		count++
	}
	assert.Equal(t, 8, count)

	var pages int
	for range s.ByModule("pages") {
		pages++
	}
	assert.Equal(t, 3, pages)

	assert.Equal(t, Stats{Types: 2, URLs: 4, All: 4, Dynamic: 2}, s.Stats())
	assert.Equal(t, []string{"pages", "listing"}, s.Types())
}

func TestFilter(t *testing.T) {
	s := newStore(t, "t")
	for _, r := range []struct {
		id   string
		tags []string
	}{
		{"A", []string{"x", "y"}},
		{"B", []string{"y", "z"}},
		{"C", []string{"z"}},
	} {
		require.NoError(t, s.Register(&types.Record{
			ID:     r.id,
			Module: "t",
			URL:    "/" + r.id + "/",
			Fields: types.Fields{"tags": types.List(r.tags...)},
		}))
	}

	res, err := s.Filter("(t:: tags in x,y) // (t:: tags not in y)")
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, "A", res.At(0).ID)
	assert.Equal(t, "C", res.At(1).ID)

	_, err = s.Filter("(pages:: tags in x)")
	assert.True(t, errors.Is(err, siteerrors.ErrQuerySyntax))

	// later registrations do not change an existing result
	require.NoError(t, s.Register(&types.Record{ID: "D", Module: "t", URL: "/d/", Fields: types.Fields{"tags": types.List("x")}}))
	assert.Equal(t, 2, res.Len())
}

func TestRegisterDirectoryURLForms(t *testing.T) {
	s := newStore(t, "pages")
	require.NoError(t, s.Register(&types.Record{Module: "pages", URL: "/about"}))

	before := s.Stats()
	err := s.Register(&types.Record{Module: "pages", URL: "/about/"})
	assert.ErrorIs(t, err, siteerrors.ErrDuplicateURL)
	assert.Equal(t, before, s.Stats())

	rec, ok := s.GetByURL("/about")
	require.True(t, ok)
	assert.Equal(t, "/about/", rec.URL)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{"/", "/", false},
		{"posts/hello/", "/posts/hello/", false},
		{"//posts//hello", "/posts/hello/", false},
		{"/about", "/about/", false},
		{"/css/site.css", "/css/site.css", false},
		{"/feed.xml/", "/feed.xml/", false},
		{"/a/./b/../c/?page=2#top", "/a/c/", false},
		{`\win\path\`, "/win/path/", false},
		{"", "", true},
		{"/../up", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
