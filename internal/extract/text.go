package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Priority fields surfaced first in the searchable text so they carry
// the most weight in the embedding.
var descriptionKeys = []string{"title", "description", "comment", "summary"}
var provenanceKeys = []string{"institution", "source", "creator"}

// searchableText assembles the text that gets embedded for one file.
// Mirrors the order users describe datasets in: name, format, what it
// is, who made it, then the remaining attributes.
func searchableText(path string, attrs map[string]string) string {
	var parts []string

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts = append(parts, strings.ReplaceAll(stem, "_", " "))

	if format, ok := attrs["format"]; ok {
		parts = append(parts, "Format: "+format)
	}

	seen := map[string]bool{"format": true}
	for _, key := range descriptionKeys {
		if v := attrs[key]; v != "" {
			parts = append(parts, cleanText(v))
			seen[key] = true
		}
	}
	for _, key := range provenanceKeys {
		if v := attrs[key]; v != "" {
			parts = append(parts, cleanText(v))
			seen[key] = true
		}
	}

	if v := attrs["variables"]; v != "" {
		parts = append(parts, "Variables: "+cleanText(v))
		seen["variables"] = true
	}
	if v := attrs["variables_hint"]; v != "" {
		parts = append(parts, "Variables: "+cleanText(v))
		seen["variables_hint"] = true
	}

	for _, key := range sortedKeys(attrs) {
		if seen[key] || attrs[key] == "" {
			continue
		}
		// History attributes are processing logs, too verbose to embed.
		if strings.EqualFold(key, "history") {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", key, cleanText(attrs[key])))
	}

	return strings.Join(parts, " ")
}

// cleanText collapses whitespace and strips NUL bytes.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\x00", " ")
	return strings.Join(strings.Fields(s), " ")
}
