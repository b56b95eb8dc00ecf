package relationships

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrud/mcrud/internal/schema"
)

func ref(localKey, target, foreignKey string, c schema.Cardinality) schema.ReferenceField {
	return schema.ReferenceField{LocalKey: localKey, Target: target, ForeignKey: foreignKey, Cardinality: c}
}

// blogRegistry wires User <-> Post (one-to-many) and Post <-> Tag (many-to-many)
func blogRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry()
	r.RegisterCollection("User")
	r.RegisterCollection("Post")
	r.RegisterCollection("Tag")

	require.Empty(t, r.Register("User", []schema.ReferenceField{ref("posts", "Post", "author", schema.Many)}))
	require.Empty(t, r.Register("Post", []schema.ReferenceField{
		ref("author", "User", "posts", schema.One),
		ref("tags", "Tag", "posts", schema.Many),
	}))
	require.Empty(t, r.Register("Tag", []schema.ReferenceField{ref("posts", "Post", "tags", schema.Many)}))

	return r
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := blogRegistry(t)
	before := r.All()

	errs := r.Register("Post", []schema.ReferenceField{
		ref("author", "User", "posts", schema.One),
		ref("tags", "Tag", "posts", schema.Many),
	})
	assert.Empty(t, errs)
	assert.Equal(t, before, r.All())
	assert.Len(t, r.ForOwner("Post"), 2)
}

func TestResolveType(t *testing.T) {
	r := blogRegistry(t)

	tests := []struct {
		owner    string
		localKey string
		want     Type
	}{
		{owner: "User", localKey: "posts", want: OneToMany},
		{owner: "Post", localKey: "author", want: ManyToOne},
		{owner: "Post", localKey: "tags", want: ManyToMany},
		{owner: "Tag", localKey: "posts", want: ManyToMany},
	}

	for _, tt := range tests {
		t.Run(tt.owner+"."+tt.localKey, func(t *testing.T) {
			got, err := r.ResolveRelationshipType(tt.owner, tt.localKey)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeSymmetry(t *testing.T) {
	r := blogRegistry(t)

	for _, rel := range r.All() {
		t.Run(rel.String(), func(t *testing.T) {
			forward, err := r.ResolveType(rel)
			require.NoError(t, err)

			reverse, ok := r.Reverse(rel)
			require.True(t, ok)

			backward, err := r.ResolveType(reverse)
			require.NoError(t, err)
			assert.Equal(t, forward.Inverse(), backward)
		})
	}
}

func TestResolveTypeErrors(t *testing.T) {
	t.Run("missing reverse", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterCollection("User")
		r.Register("Post", []schema.ReferenceField{ref("author", "User", "posts", schema.One)})

		_, err := r.ResolveRelationshipType("Post", "author")
		assert.True(t, errors.Is(err, ErrMissingReverseRelationship))
	})

	t.Run("reverse points elsewhere", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterCollection("User")
		r.RegisterCollection("Comment")
		r.Register("Post", []schema.ReferenceField{ref("author", "User", "posts", schema.One)})
		r.Register("User", []schema.ReferenceField{ref("posts", "Comment", "author", schema.Many)})

		_, err := r.ResolveRelationshipType("Post", "author")
		assert.True(t, errors.Is(err, ErrMissingReverseRelationship))
	})

	t.Run("one to one is unsupported", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterCollection("User")
		r.RegisterCollection("Profile")
		r.Register("User", []schema.ReferenceField{ref("profile", "Profile", "user", schema.One)})
		r.Register("Profile", []schema.ReferenceField{ref("user", "User", "profile", schema.One)})

		_, err := r.ResolveRelationshipType("User", "profile")
		assert.True(t, errors.Is(err, ErrUnsupportedRelationshipShape))
	})

	t.Run("unknown relationship", func(t *testing.T) {
		r := blogRegistry(t)
		_, err := r.ResolveRelationshipType("User", "comments")
		assert.True(t, errors.Is(err, ErrUnknownRelationship))
	})
}

func TestPendingReferencesResolveOnLateRegistration(t *testing.T) {
	r := NewRegistry()

	errs := r.Register("Post", []schema.ReferenceField{ref("author", "User", "posts", schema.One)})
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ErrUnknownTarget))
	assert.Empty(t, r.ForOwner("Post"))
	assert.Len(t, r.Pending(), 1)

	// registering the same pending reference twice keeps one entry
	r.Register("Post", []schema.ReferenceField{ref("author", "User", "posts", schema.One)})
	assert.Len(t, r.Pending(), 1)

	assert.Empty(t, r.Register("User", []schema.ReferenceField{ref("posts", "Post", "author", schema.Many)}))

	assert.Empty(t, r.Pending())
	rel, ok := r.Lookup("Post", "author")
	require.True(t, ok)
	assert.Equal(t, "User", rel.Target)

	typ, err := r.ResolveType(rel)
	require.NoError(t, err)
	assert.Equal(t, ManyToOne, typ)
}

func TestRegisterCollectionReturnsRetried(t *testing.T) {
	r := NewRegistry()
	r.Register("Post", []schema.ReferenceField{ref("author", "User", "posts", schema.One)})

	created := r.RegisterCollection("User")
	require.Len(t, created, 1)
	assert.Equal(t, "author", created[0].LocalKey)
	assert.Nil(t, r.RegisterCollection("User"))
}

func TestRelated(t *testing.T) {
	r := blogRegistry(t)

	assert.Equal(t, []string{"Tag", "User"}, r.Related("Post"))
	assert.Equal(t, []string{"Post"}, r.Related("User"))
	assert.Empty(t, r.Related("Unknown"))
}

func TestSelfReference(t *testing.T) {
	r := NewRegistry()
	errs := r.Register("User", []schema.ReferenceField{
		ref("friends", "User", "friends", schema.Many),
	})
	require.Empty(t, errs)

	typ, err := r.ResolveRelationshipType("User", "friends")
	require.NoError(t, err)
	assert.Equal(t, ManyToMany, typ)
}

func TestConcurrentAccess(t *testing.T) {
	r := blogRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.ResolveRelationshipType("Post", "tags")
			_ = r.All()
		}()
		go func() {
			defer wg.Done()
			r.Register("Comment", []schema.ReferenceField{ref("post", "Post", "comments", schema.One)})
		}()
	}
	wg.Wait()

	assert.Len(t, r.ForOwner("Comment"), 1)
}

func TestReport(t *testing.T) {
	r := blogRegistry(t)
	r.Register("Comment", []schema.ReferenceField{
		ref("post", "Post", "comments", schema.One),
		ref("reactions", "Reaction", "comment", schema.Many),
	})

	report := r.Report()
	assert.Equal(t, []string{"User", "Post", "Tag", "Comment"}, report.Collections)
	assert.Equal(t, 1, report.Unresolved)
	require.Len(t, report.Pending, 1)
	assert.Equal(t, "Reaction", report.Pending[0].Reference.Target)

	out := report.String()
	assert.Contains(t, out, "User.posts -> Post.author (many): OneToMany")
	assert.Contains(t, out, "missing reverse relationship")
	assert.Contains(t, out, "Comment.reactions -> Reaction (not registered)")
}

func TestTypeInverse(t *testing.T) {
	assert.Equal(t, ManyToOne, OneToMany.Inverse())
	assert.Equal(t, OneToMany, ManyToOne.Inverse())
	assert.Equal(t, ManyToMany, ManyToMany.Inverse())
}
