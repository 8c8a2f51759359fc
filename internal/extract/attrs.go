package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairdata/fairsearch/internal/errors"
)

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
		regexp.MustCompile(`(\d{4})_(\d{2})_(\d{2})`),
		regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`),
	}
	versionPattern = regexp.MustCompile(`(?i)v(?:ersion)?[_\-]?(\d+(?:\.\d+)?)`)
)

// variableHints maps filename abbreviations common in scientific data
// to full variable names.
var variableHints = []struct {
	abbr string
	name string
}{
	{"sst", "sea_surface_temperature"},
	{"ssh", "sea_surface_height"},
	{"sss", "sea_surface_salinity"},
	{"temp", "temperature"},
	{"sal", "salinity"},
	{"wind", "wind_speed"},
	{"precip", "precipitation"},
	{"press", "pressure"},
}

// filenameAttributes recognizes date, version, and variable hints
// embedded in dataset filenames.
func filenameAttributes(path string) map[string]string {
	attrs := make(map[string]string)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	for _, p := range datePatterns {
		if m := p.FindStringSubmatch(stem); m != nil {
			attrs["date_from_filename"] = fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
			break
		}
	}

	if m := versionPattern.FindStringSubmatch(stem); m != nil {
		attrs["version"] = m[1]
	}

	lower := strings.ToLower(stem)
	var hints []string
	for _, h := range variableHints {
		if strings.Contains(lower, h.abbr) {
			hints = append(hints, h.name)
		}
	}
	if len(hints) > 0 {
		attrs["variables_hint"] = strings.Join(hints, ", ")
	}

	return attrs
}

// sidecarSuffixes lists companion metadata files probed next to the
// data file, in priority order. Later files override earlier keys.
var sidecarSuffixes = []string{".json", ".yaml", ".yml"}

// loadSidecar merges attributes from <path>.json / <path>.yaml / <path>.yml
// companions. A missing sidecar is not an error; a malformed one is.
func loadSidecar(path string) (map[string]string, error) {
	attrs := make(map[string]string)

	for _, suffix := range sidecarSuffixes {
		sidecar := path + suffix
		raw, err := os.ReadFile(sidecar)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.ExtractionError(sidecar, err)
		}

		parsed := make(map[string]any)
		if suffix == ".json" {
			err = json.Unmarshal(raw, &parsed)
		} else {
			err = yaml.Unmarshal(raw, &parsed)
		}
		if err != nil {
			return nil, errors.ExtractionError(sidecar,
				fmt.Errorf("parse sidecar metadata: %w", err))
		}

		flattenInto(attrs, "", parsed)
	}

	return attrs, nil
}

// flattenInto converts nested sidecar metadata to dotted string keys.
func flattenInto(out map[string]string, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenInto(out, key, child)
		}
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		out[prefix] = strings.Join(parts, ", ")
	default:
		if prefix != "" {
			out[prefix] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
}

// sortedKeys returns map keys in deterministic order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
