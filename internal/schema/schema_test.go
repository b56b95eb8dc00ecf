package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogSchema = `
collections:
  - name: User
    fields:
      name: string
      age: number
      posts:
        ref: Post
        foreignKey: author
        many: true
  - name: Post
    prefix: articles
    disable: [deleteById]
    fields:
      title: { type: string, required: true }
      tags: [string]
      author:
        ref: User
        foreignKey: posts
      categories:
        - ref: Category
          foreignKey: posts
  - name: Category
    plural: categories
    fields:
      label: string
      posts: { ref: Post, foreignKey: categories, many: true }
`

func TestParse(t *testing.T) {
	collections, err := Parse([]byte(blogSchema))
	require.NoError(t, err)
	require.Len(t, collections, 3)

	user := collections[0]
	assert.Equal(t, "User", user.Name)
	assert.Equal(t, "users", user.Plural)
	assert.Equal(t, "/users", user.RoutePrefix())
	assert.Equal(t, KindString, user.Descriptor["name"].Kind)
	assert.True(t, user.Descriptor["posts"].IsReferenceArray())

	post := collections[1]
	assert.Equal(t, "/articles", post.RoutePrefix())
	assert.True(t, post.RouteDisabled("deleteById"))
	assert.False(t, post.RouteDisabled("patch"))
	assert.True(t, post.Descriptor["title"].Required)
	assert.Equal(t, KindArray, post.Descriptor["tags"].Kind)
	assert.Equal(t, KindString, post.Descriptor["tags"].Elem.Kind)
	assert.True(t, post.Descriptor["author"].IsReference())
	assert.True(t, post.Descriptor["categories"].IsReferenceArray())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing name", doc: "collections:\n  - fields: {a: string}\n"},
		{name: "unknown type", doc: "collections:\n  - name: A\n    fields: {a: blob}\n"},
		{name: "reference without foreign key", doc: "collections:\n  - name: A\n    fields:\n      b: {ref: B}\n"},
		{name: "array with two element types", doc: "collections:\n  - name: A\n    fields:\n      b: [string, number]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(blogSchema), 0o644))

	collections, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, collections, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestScanReferences(t *testing.T) {
	collections, err := Parse([]byte(blogSchema))
	require.NoError(t, err)

	refs := ScanReferences(collections[1].Descriptor)
	require.Len(t, refs, 2)

	assert.Equal(t, ReferenceField{LocalKey: "author", Target: "User", ForeignKey: "posts", Cardinality: One}, refs[0])
	assert.Equal(t, ReferenceField{LocalKey: "categories", Target: "Category", ForeignKey: "posts", Cardinality: Many}, refs[1])

	assert.Empty(t, ScanReferences(Descriptor{"name": {Kind: KindString}}))
}

func TestPluralize(t *testing.T) {
	tests := map[string]string{
		"User":     "users",
		"Category": "categories",
		"Day":      "days",
		"Box":      "boxes",
		"Match":    "matches",
		"Person":   "people",
		"News":     "news",
		"Address":  "addresses",
		"Series":   "series",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Pluralize(in))
		})
	}
}

func TestRoutePrefixOverride(t *testing.T) {
	empty := ""
	c := NewCollection("User", nil)
	c.Prefix = &empty
	assert.Equal(t, "", c.RoutePrefix())

	custom := "/api/people/"
	c.Prefix = &custom
	assert.Equal(t, "/api/people", c.RoutePrefix())
}

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewCollection("Post", nil)))

		retrieved, exists := registry.Get("Post")
		require.True(t, exists)
		assert.Equal(t, "posts", retrieved.Plural)

		byPlural, exists := registry.GetByPlural("posts")
		require.True(t, exists)
		assert.Same(t, retrieved, byPlural)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewCollection("Post", nil)))
		assert.Error(t, registry.Register(NewCollection("Post", nil)))
	})

	t.Run("plural clash", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewCollection("Post", nil)))
		other := NewCollection("Article", nil)
		other.Plural = "posts"
		assert.Error(t, registry.Register(other))
	})

	t.Run("list keeps registration order", func(t *testing.T) {
		registry := NewRegistry()
		for _, name := range []string{"User", "Post", "Comment"} {
			require.NoError(t, registry.Register(NewCollection(name, nil)))
		}
		assert.Equal(t, []string{"User", "Post", "Comment"}, registry.List())
		assert.Equal(t, 3, registry.Count())
		assert.True(t, registry.Exists("Comment"))

		registry.Clear()
		assert.Equal(t, 0, registry.Count())
	})
}
