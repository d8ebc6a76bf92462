package analytics

import (
    "os"
    "strings"

    "gopkg.in/yaml.v3"
)

// LoadSplitRules reads a YAML rules file and merges it over the
// defaults: a list present in the file replaces the default list, a
// missing or empty list keeps it. Keywords are lowercased on load so
// classification stays case-insensitive regardless of how the file is
// written. Any read or parse problem falls back to the defaults.
func LoadSplitRules(path string) SplitRules {
    rules := DefaultSplitRules()
    if path == "" { return rules }
    data, err := os.ReadFile(path)
    if err != nil { return rules }
    var file SplitRules
    if err := yaml.Unmarshal(data, &file); err != nil { return rules }
    if len(file.Support) > 0 { rules.Support = lowerAll(file.Support) }
    if len(file.Maintenance) > 0 { rules.Maintenance = lowerAll(file.Maintenance) }
    if len(file.Feature) > 0 { rules.Feature = lowerAll(file.Feature) }
    return rules
}

func lowerAll(in []string) []string {
    out := make([]string, 0, len(in))
    for _, s := range in {
        s = strings.ToLower(strings.TrimSpace(s))
        if s != "" { out = append(out, s) }
    }
    return out
}
