package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// GenerationKey is the counter key holding the generation of a collection
func GenerationKey(collection string) string {
	return "gen:" + collection
}

// ResponseKey generates the cache key of a read of collection at generation.
// Query parameters are sorted so equivalent URLs share a key.
func ResponseKey(collection string, generation int64, r *http.Request) string {
	parts := []string{r.Method, r.URL.Path}

	if r.URL.RawQuery != "" {
		query := r.URL.Query()
		var queryParts []string
		for key, values := range query {
			sort.Strings(values)
			for _, value := range values {
				queryParts = append(queryParts, fmt.Sprintf("%s=%s", key, value))
			}
		}
		sort.Strings(queryParts)
		parts = append(parts, strings.Join(queryParts, "&"))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("resp:%s:%d:%s", collection, generation, hex.EncodeToString(hash[:16]))
}
