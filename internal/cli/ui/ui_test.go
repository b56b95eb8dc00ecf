package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestTableRender(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	table := NewTable(&buf, "METHOD", "PATTERN")
	table.AddRow("GET", "/users")
	table.AddRow("DELETE", "/users/{id}", "ignored")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"METHOD  PATTERN",
		"──────  ───────────",
		"GET     /users",
		"DELETE  /users/{id}",
	}, lines)
	assert.Equal(t, 2, table.Len())
}

func TestTableWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf).Render()
	assert.Empty(t, buf.String())
}

func TestKeyValueTable(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	table := NewKeyValueTable(&buf)
	table.AddRow("name", "User")
	table.AddRow("collection", "users")
	table.Render()

	assert.Equal(t, "name:       User\ncollection: users\n", buf.String())
}

func TestHeader(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	Header(&buf, "users")
	assert.Equal(t, "users\n─────\n", buf.String())
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"users", "users", 0},
		{"usres", "users", 2},
		{"post", "posts", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
		})
	}
}

func TestSuggest(t *testing.T) {
	candidates := []string{"users", "posts", "comments", "User"}

	assert.Equal(t, []string{"User", "users"}, Suggest("user", candidates, 3))
	assert.Equal(t, []string{"User"}, Suggest("user", candidates, 1))
	assert.Empty(t, Suggest("zzzzzzzz", candidates, 3))
}

func TestNotFound(t *testing.T) {
	err := NotFound("collection", "post", []string{"posts", "users"})
	assert.EqualError(t, err, `collection "post" not found, did you mean posts?`)

	err = NotFound("collection", "orders", []string{"posts"})
	assert.EqualError(t, err, `collection "orders" not found`)
}
