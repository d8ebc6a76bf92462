/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "sort"
    "strings"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

const (
    defaultRecentClosedWithinDays = 14
    defaultRecentSprintsMax       = 6
)

// ResolveOptions controls which sprint counts as "current".
type ResolveOptions struct {
    // SprintID pins the selection to an explicit sprint when > 0.
    SprintID int64
    // RecentClosedFallback allows falling back to a recently closed
    // sprint when the board has no active one, so reports are not
    // empty right after sprint close.
    RecentClosedFallback bool
    // RecentClosedWithinDays bounds that fallback; 0 means 14.
    RecentClosedWithinDays int
}

func DefaultResolveOptions() ResolveOptions {
    return ResolveOptions{RecentClosedFallback: true, RecentClosedWithinDays: defaultRecentClosedWithinDays}
}

// parseSprintDate accepts the date shapes Jira emits across Server/DC
// and Cloud. Returns nil for anything unparseable.
func parseSprintDate(s string) *time.Time {
    s = strings.TrimSpace(s)
    if s == "" { return nil }
    layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700", "2006-01-02"}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil {
            tt := t.UTC(); return &tt
        }
    }
    return nil
}

func normState(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ResolveSprintFromList picks the sprint a report should show, in
// strict priority order: explicit id, then the first active sprint,
// then (optionally) the most recently closed sprint within the cutoff
// window. Returns nil when nothing qualifies; never an error. The
// caller supplies now so the selection is reproducible.
func ResolveSprintFromList(sprints []domain.Sprint, opts ResolveOptions, now time.Time) *domain.Sprint {
    if len(sprints) == 0 { return nil }

    if opts.SprintID > 0 {
        for _, sp := range sprints {
            if sp.ID == opts.SprintID { cp := sp; return &cp }
        }
    }

    for _, sp := range sprints {
        if normState(sp.State) == "active" { cp := sp; return &cp }
    }

    if opts.RecentClosedFallback {
        days := opts.RecentClosedWithinDays
        if days <= 0 { days = defaultRecentClosedWithinDays }
        cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
        var best *domain.Sprint
        var bestEnd time.Time
        for _, sp := range sprints {
            if normState(sp.State) != "closed" { continue }
            end := parseSprintDate(sp.EndDate)
            if end == nil || end.Before(cutoff) { continue }
            // ties on endDate go to the higher sprint id
            if best == nil || end.After(bestEnd) || (end.Equal(bestEnd) && sp.ID > best.ID) {
                cp := sp
                best = &cp
                bestEnd = *end
            }
        }
        if best != nil { return best }
    }

    return nil
}

// sprintSortTime orders sprints for the recent list: endDate first,
// startDate as fallback, epoch for sprints with no usable date.
func sprintSortTime(sp domain.Sprint) time.Time {
    if t := parseSprintDate(sp.EndDate); t != nil { return *t }
    if t := parseSprintDate(sp.StartDate); t != nil { return *t }
    return time.Unix(0, 0).UTC()
}

// ResolveRecentSprints builds the navigation tab list: the current
// sprint plus every active or closed sibling, de-duplicated by id,
// newest first, capped at maxItems (6 when <= 0). Future sprints are
// excluded; there is nothing to review in them yet.
func ResolveRecentSprints(sprints []domain.Sprint, current *domain.Sprint, maxItems int) []domain.SprintRef {
    if maxItems <= 0 { maxItems = defaultRecentSprintsMax }
    byID := map[int64]domain.Sprint{}
    order := []int64{}

    // seed with the current sprint so the state filter below can never
    // drop it; its state is stored lowercased
    if current != nil {
        cp := *current
        cp.State = normState(cp.State)
        byID[cp.ID] = cp
        order = append(order, cp.ID)
    }
    for _, sp := range sprints {
        st := normState(sp.State)
        if st != "active" && st != "closed" { continue }
        if _, seen := byID[sp.ID]; seen { continue }
        byID[sp.ID] = sp
        order = append(order, sp.ID)
    }

    sort.SliceStable(order, func(i, j int) bool {
        a, b := byID[order[i]], byID[order[j]]
        ta, tb := sprintSortTime(a), sprintSortTime(b)
        if ta.Equal(tb) { return a.ID > b.ID }
        return ta.After(tb)
    })
    if len(order) > maxItems { order = order[:maxItems] }

    out := make([]domain.SprintRef, 0, len(order))
    for _, id := range order {
        sp := byID[id]
        out = append(out, domain.SprintRef{ID: sp.ID, Name: sp.Name, State: sp.State, StartDate: sp.StartDate, EndDate: sp.EndDate})
    }
    return out
}

// ResolveNextSprint finds the upcoming sprint relative to the current
// one: any future-state sprint, or any sprint starting strictly after
// the current sprint ends. Earliest start wins; candidates with no
// parseable start date sort last; equal starts go to the lower id.
func ResolveNextSprint(sprints []domain.Sprint, current *domain.Sprint) *domain.NextSprint {
    if current == nil || len(sprints) == 0 { return nil }
    curEnd := parseSprintDate(current.EndDate)

    var best *domain.Sprint
    var bestStart *time.Time
    for _, sp := range sprints {
        if sp.ID == current.ID { continue }
        start := parseSprintDate(sp.StartDate)
        candidate := normState(sp.State) == "future"
        if !candidate && start != nil && curEnd != nil && start.After(*curEnd) { candidate = true }
        if !candidate { continue }
        if best == nil || startBefore(start, sp.ID, bestStart, best.ID) {
            cp := sp
            best = &cp
            bestStart = start
        }
    }
    if best == nil { return nil }
    return &domain.NextSprint{ID: best.ID, Name: best.Name, Goal: best.Goal, StartDate: best.StartDate, EndDate: best.EndDate}
}

func startBefore(a *time.Time, aID int64, b *time.Time, bID int64) bool {
    switch {
    case a == nil && b == nil:
        return aID < bID
    case a == nil:
        return false
    case b == nil:
        return true
    case a.Equal(*b):
        return aID < bID
    default:
        return a.Before(*b)
    }
}
