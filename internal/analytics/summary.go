/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "math"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

// ComputeSprintSummary aggregates the sprint headline numbers. Stories
// drive the completion figures; the feature/support split and the
// all-in total walk every raw issue on the sprint so bugs, tasks and
// subtasks count too. Missing or non-numeric story points contribute 0
// throughout, and an empty storyPointsFieldID zeroes the issue-level
// sums entirely.
func ComputeSprintSummary(stories []domain.Story, allIssues []map[string]any, storyPointsFieldID string, rules SplitRules) domain.SprintSummary {
    sum := domain.SprintSummary{TotalStories: len(stories)}

    for _, st := range stories {
        sp := pointsValue(st.StoryPoints)
        sum.TotalSP += sp
        if st.CompletionPct == 100 {
            sum.DoneStories++
            sum.DoneSP += sp
        }
    }

    // SP-based completion when the board estimates; story-count
    // completion as the fallback for boards that do not.
    switch {
    case sum.TotalSP > 0:
        sum.PercentDone = int(math.Round(sum.DoneSP / sum.TotalSP * 100))
    case sum.TotalStories > 0:
        sum.PercentDone = int(math.Round(float64(sum.DoneStories) / float64(sum.TotalStories) * 100))
    }

    for _, issue := range allIssues {
        fields, _ := issue["fields"].(map[string]any)
        sp := StoryPoints(fields, storyPointsFieldID)
        sum.TotalAllSP += sp
        if ClassifyIssueTypeForSplit(issue, rules) == BucketFeature {
            sum.NewFeaturesSP += sp
        } else {
            sum.SupportOpsSP += sp
        }
    }

    return sum
}
