/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "encoding/json"
    "fmt"
    "strconv"
    "strings"
)

// Bucket is the feature/support reporting split for an issue.
type Bucket string

const (
    BucketFeature Bucket = "feature"
    BucketSupport Bucket = "support"
)

// SplitRules holds the lowercase keyword lists driving the type split.
// Jira instances rename issue types freely, so deployments can override
// these via a rules file instead of patching the binary.
type SplitRules struct {
    Support     []string `yaml:"support"`
    Maintenance []string `yaml:"maintenance"`
    Feature     []string `yaml:"feature"`
}

func DefaultSplitRules() SplitRules {
    return SplitRules{
        Support:     []string{"bug", "support", "ops", "operation"},
        Maintenance: []string{"task", "chore", "maintenance"},
        Feature:     []string{"story", "feature", "improvement"},
    }
}

// issueTypeName extracts fields.issuetype.name lowercased. Any missing
// or malformed level degrades to the empty string.
func issueTypeName(issue map[string]any) string {
    if issue == nil { return "" }
    fields, _ := issue["fields"].(map[string]any)
    if fields == nil { return "" }
    it, _ := fields["issuetype"].(map[string]any)
    if it == nil { return "" }
    name, _ := it["name"].(string)
    return strings.ToLower(strings.TrimSpace(name))
}

// IsStoryIssue reports whether the issue type is a story variant.
func IsStoryIssue(issue map[string]any) bool {
    return strings.Contains(issueTypeName(issue), "story")
}

// IsSubtaskIssue matches both "Sub-task" (Server/DC) and "Subtask" (Cloud).
func IsSubtaskIssue(issue map[string]any) bool {
    t := issueTypeName(issue)
    return strings.Contains(t, "sub-task") || strings.Contains(t, "subtask")
}

// IsWorkItemIssue is true for every typed issue that is not a subtask.
func IsWorkItemIssue(issue map[string]any) bool {
    t := issueTypeName(issue)
    if t == "" { return false }
    return !strings.Contains(t, "sub-task") && !strings.Contains(t, "subtask")
}

func containsAny(s string, keywords []string) bool {
    for _, k := range keywords {
        if k != "" && strings.Contains(s, k) { return true }
    }
    return false
}

// ClassifyIssueTypeForSplit routes an issue into exactly one bucket.
// Rule order matters: support signals win over feature signals, so a
// type like "Story Bug" lands in support. Unknown types default to
// support rather than inflating the feature share.
func ClassifyIssueTypeForSplit(issue map[string]any, rules SplitRules) Bucket {
    t := issueTypeName(issue)
    switch {
    case t == "":
        return BucketSupport
    case containsAny(t, rules.Support):
        return BucketSupport
    case containsAny(t, rules.Maintenance):
        return BucketSupport
    case containsAny(t, rules.Feature):
        return BucketFeature
    default:
        return BucketSupport
    }
}

// StoryPoints reads the story-points custom field off a raw fields map.
// Unknown field id, absent value, or a non-numeric value all yield 0;
// this is the single place that fallback lives.
func StoryPoints(fields map[string]any, fieldID string) float64 {
    if fields == nil || fieldID == "" { return 0 }
    return pointsValue(fields[fieldID])
}

// pointsValue coerces a raw story-points value to a number, 0 on failure.
func pointsValue(v any) float64 {
    switch t := v.(type) {
    case nil:
        return 0
    case float64:
        return t
    case float32:
        return float64(t)
    case int:
        return float64(t)
    case int64:
        return float64(t)
    case json.Number:
        f, err := t.Float64()
        if err != nil { return 0 }
        return f
    case string:
        f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
        if err != nil { return 0 }
        return f
    default:
        // last resort for oddly typed custom field payloads
        f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(t)), 64)
        if err != nil { return 0 }
        return f
    }
}
