package openai

import (
	"fmt"
	"strings"
	"time"

	"llmbridge/internal/models"
)

// correlationIDs derives one id per item in submission order. An item id is
// used verbatim; otherwise the id is "<prefix>-<index>" where prefix is the
// batch name, then the caller id, then "batch-<unix millis>".
func correlationIDs(items []models.BatchItem, opts models.BatchOptions, now time.Time) []string {
	prefix := strings.TrimSpace(opts.Name)
	if prefix == "" {
		prefix = strings.TrimSpace(opts.CallerID)
	}
	if prefix == "" {
		prefix = fmt.Sprintf("batch-%d", now.UnixMilli())
	}

	ids := make([]string, len(items))
	for i, item := range items {
		if id := strings.TrimSpace(item.ID); id != "" {
			ids[i] = id
			continue
		}
		ids[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return ids
}

// duplicateIDs maps each repeated id to the index that wins a lookup, which is
// always the last occurrence.
func duplicateIDs(ids []string) map[string]int {
	last := make(map[string]int, len(ids))
	seen := make(map[string]int, len(ids))
	for i, id := range ids {
		seen[id]++
		last[id] = i
	}
	dups := make(map[string]int)
	for id, n := range seen {
		if n > 1 {
			dups[id] = last[id]
		}
	}
	return dups
}
