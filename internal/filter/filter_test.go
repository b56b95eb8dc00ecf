package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseLeaf(t *testing.T) {
	node, err := Parse("age gt '5'")
	require.NoError(t, err)

	leaf, ok := node.(*Leaf)
	require.True(t, ok)
	assert.Equal(t, "age", leaf.Field)
	assert.Equal(t, "gt", leaf.Operator)
	assert.Equal(t, Value{Raw: "5", Quoted: true}, leaf.Value)
}

func TestParseValues(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{input: "a eq 5", want: Value{Raw: "5"}},
		{input: "a eq 'hello world'", want: Value{Raw: "hello world", Quoted: true}},
		{input: "a eq ''", want: Value{Raw: "", Quoted: true}},
		{input: "a eq guid'5f1d7f3e9b1e8a2c4d6f0a1b'", want: Value{Raw: "5f1d7f3e9b1e8a2c4d6f0a1b", Hint: "guid", Quoted: true}},
		{input: "a in 'x, y'", want: Value{Raw: "x, y", Quoted: true}},
		{input: "a in x,y,z", want: Value{Raw: "x,y,z"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, node.(*Leaf).Value)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		node, err := Parse(input)
		assert.NoError(t, err)
		assert.Nil(t, node)
		assert.Equal(t, bson.M{}, Compile(node))
	}
}

func TestParsePrecedence(t *testing.T) {
	node, err := Parse("a eq 1 or b eq 2 and c eq 3")
	require.NoError(t, err)

	or, ok := node.(*Composite)
	require.True(t, ok)
	assert.Equal(t, Or, or.Connective)
	require.Len(t, or.Children, 2)
	assert.Equal(t, "a", or.Children[0].(*Leaf).Field)

	and, ok := or.Children[1].(*Composite)
	require.True(t, ok)
	assert.Equal(t, And, and.Connective)
	assert.Len(t, and.Children, 2)
}

func TestParseConnectivesAreCaseInsensitive(t *testing.T) {
	node, err := Parse("a eq 1 AND b eq 2 Or c eq 3")
	require.NoError(t, err)
	assert.Equal(t, "(a eq 1 and b eq 2) or c eq 3", node.String())
}

func TestParseNestedGrouping(t *testing.T) {
	node, err := Parse("(a eq '1' or (b eq '2' and (c eq '3' or d eq '4')))")
	require.NoError(t, err)

	or := node.(*Composite)
	assert.Equal(t, Or, or.Connective)
	require.Len(t, or.Children, 2)

	and := or.Children[1].(*Composite)
	assert.Equal(t, And, and.Connective)
	require.Len(t, and.Children, 2)

	inner := and.Children[1].(*Composite)
	assert.Equal(t, Or, inner.Connective)
	assert.Len(t, inner.Children, 2)

	assert.Equal(t, bson.M{"$or": bson.A{
		bson.M{"a": bson.M{"$eq": "1"}},
		bson.M{"$and": bson.A{
			bson.M{"b": bson.M{"$eq": "2"}},
			bson.M{"$or": bson.A{
				bson.M{"c": bson.M{"$eq": "3"}},
				bson.M{"d": bson.M{"$eq": "4"}},
			}},
		}},
	}}, Compile(node))
}

func TestParseFlattensSameConnective(t *testing.T) {
	node, err := Parse("(a eq 1 and b eq 2) and c eq 3")
	require.NoError(t, err)

	and := node.(*Composite)
	assert.Equal(t, And, and.Connective)
	assert.Len(t, and.Children, 3)

	node, err = Parse("((a eq 1))")
	require.NoError(t, err)
	_, isLeaf := node.(*Leaf)
	assert.True(t, isLeaf)
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"age gt '5'",
		"a eq 1 and b ne 'x y'",
		"a eq 1 or b eq 2 and c eq 3",
		"(a eq 1 or b eq 2) and c lt int'3'",
		"loc nearSphere '1,2,3'",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(input)
			require.NoError(t, err)

			second, err := Parse(first.String())
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		pos   int
	}{
		{name: "dangling and", input: "a eq 1 and", pos: 7},
		{name: "leading or", input: "or a eq 1", pos: 0},
		{name: "missing value", input: "a eq", pos: 4},
		{name: "missing operator", input: "a", pos: 1},
		{name: "unclosed parenthesis", input: "(a eq 1", pos: 0},
		{name: "extra closing parenthesis", input: "a eq 1)", pos: 6},
		{name: "empty group", input: "()", pos: 1},
		{name: "trailing tokens", input: "a eq 1 b eq 2", pos: 7},
		{name: "unterminated quote", input: "a eq 'open", pos: 5},
		{name: "value is a parenthesis", input: "a eq (", pos: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Parse(tt.input)
			assert.Nil(t, node)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedFilter))

			var malformed *MalformedFilterError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, tt.input, malformed.Input)
			assert.Equal(t, tt.pos, malformed.Pos)
			assert.NotEmpty(t, malformed.Reason)
		})
	}
}

func TestCompile(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  bson.M
	}{
		{name: "quoted value stays a string", input: "age gt '5'", want: bson.M{"age": bson.M{"$gt": "5"}}},
		{name: "bare value", input: "name eq bob", want: bson.M{"name": bson.M{"$eq": "bob"}}},
		{name: "operator case", input: "age GTE '5'", want: bson.M{"age": bson.M{"$gte": "5"}}},
		{name: "guid hint", input: "author eq guid'" + oid.Hex() + "'", want: bson.M{"author": bson.M{"$eq": oid}}},
		{name: "invalid guid keeps raw", input: "author eq guid'nope'", want: bson.M{"author": bson.M{"$eq": "nope"}}},
		{name: "int hint", input: "age lt int'42'", want: bson.M{"age": bson.M{"$lt": int64(42)}}},
		{name: "float hint", input: "score lte float'1.5'", want: bson.M{"score": bson.M{"$lte": 1.5}}},
		{name: "bool hint", input: "active ne bool'true'", want: bson.M{"active": bson.M{"$ne": true}}},
		{name: "date hint", input: "at gt date'2024-05-01T12:00:00Z'", want: bson.M{"at": bson.M{"$gt": when}}},
		{name: "unknown hint ignored", input: "a eq color'red'", want: bson.M{"a": bson.M{"$eq": "red"}}},
		{name: "in splits on commas", input: "role in 'admin, owner'", want: bson.M{"role": bson.M{"$in": bson.A{"admin", "owner"}}}},
		{name: "nin with hint", input: "age nin int'1,2'", want: bson.M{"age": bson.M{"$nin": bson.A{int64(1), int64(2)}}}},
		{name: "unsupported operator", input: "name like 'bo%'", want: bson.M{}},
		{
			name:  "grouped and",
			input: "age gt '5' and name eq 'bob'",
			want: bson.M{"$and": bson.A{
				bson.M{"age": bson.M{"$gt": "5"}},
				bson.M{"name": bson.M{"$eq": "bob"}},
			}},
		},
		{
			name:  "unsupported leaf inside a group",
			input: "a eq 1 or b regex x",
			want:  bson.M{"$or": bson.A{bson.M{"a": bson.M{"$eq": "1"}}, bson.M{}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileNearSphere(t *testing.T) {
	t.Run("three components", func(t *testing.T) {
		got, err := CompileString("loc nearSphere '48.85,2.35,1000'")
		require.NoError(t, err)
		assert.Equal(t, bson.M{"loc": bson.M{"$nearSphere": bson.M{
			"$geometry":    bson.M{"type": "Point", "coordinates": bson.A{48.85, 2.35}},
			"$minDistance": float64(0),
			"$maxDistance": float64(1000),
		}}}, got)
	})

	t.Run("min distance", func(t *testing.T) {
		got, err := CompileString("loc nearsphere 1,2,300,10")
		require.NoError(t, err)
		geo := got["loc"].(bson.M)["$nearSphere"].(bson.M)
		assert.Equal(t, float64(10), geo["$minDistance"])
		assert.Equal(t, float64(300), geo["$maxDistance"])
	})

	t.Run("too few components is a no-op", func(t *testing.T) {
		for _, input := range []string{"loc nearSphere '1,2'", "loc nearSphere '1'", "loc nearSphere ''"} {
			got, err := CompileString(input)
			require.NoError(t, err)
			assert.Equal(t, bson.M{}, got, input)
		}
	})
}

func TestCompileStringMalformed(t *testing.T) {
	got, err := CompileString("a eq 1 and (b eq 2")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrMalformedFilter))
}
