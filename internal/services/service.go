/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "github.com/HamedShams/sprint-pulse/internal/analytics"
    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/repo"
)

type JiraClient interface {
    Boards(ctx context.Context, startAt, max int) (any, error)
    Sprints(ctx context.Context, boardID int64, startAt, max int) (any, error)
    SprintIssues(ctx context.Context, sprintID int64, startAt, max int) (any, error)
    ResolveBoardsByNames(ctx context.Context, names []string) ([]int64, error)
    Fields(ctx context.Context) (any, error)
}

type Service struct {
    cfg  config.Config
    log  zerolog.Logger
    repo *repo.Repository
    jira JiraClient

    boardIDs         []int64
    storyPointsField string
    rules            analytics.SplitRules
}

func New(cfg config.Config, log zerolog.Logger, r *repo.Repository, jira JiraClient) *Service {
    return &Service{
        cfg:              cfg,
        log:              log,
        repo:             r,
        jira:             jira,
        storyPointsField: cfg.StoryPointsField,
        rules:            analytics.LoadSplitRules(cfg.ClassifierRulesFile),
    }
}

func (s *Service) ensureBoards(ctx context.Context) error {
    if len(s.boardIDs) > 0 { return nil }
    if len(s.cfg.JiraBoardNames) == 0 { return errors.New("no boards configured; set JIRA_BOARD_NAMES") }
    ids, err := s.jira.ResolveBoardsByNames(ctx, s.cfg.JiraBoardNames)
    if err != nil { return err }
    if len(ids) == 0 { return fmt.Errorf("no boards matched names %v", s.cfg.JiraBoardNames) }
    s.boardIDs = ids
    return nil
}

// ensureStoryPointsField discovers the Story Points custom field id by
// name unless the deployment pinned one via config. Missing field is
// not fatal: all story-point sums degrade to 0 downstream.
func (s *Service) ensureStoryPointsField(ctx context.Context) {
    if s.storyPointsField != "" { return }
    fields, err := s.jira.Fields(ctx)
    if err != nil { s.log.Error().Err(err).Msg("jira fields discovery failed"); return }
    check := func(f map[string]any) {
        name, _ := f["name"].(string)
        if !strings.EqualFold(strings.TrimSpace(name), "story points") { return }
        if key, _ := f["key"].(string); key != "" && s.storyPointsField == "" { s.storyPointsField = key }
        if id, _ := f["id"].(string); id != "" && s.storyPointsField == "" { s.storyPointsField = id }
    }
    switch arr := fields.(type) {
    case []map[string]any:
        for _, f := range arr { check(f) }
    case []any:
        for _, f0 := range arr { if f, _ := f0.(map[string]any); f != nil { check(f) } }
    }
    if s.storyPointsField != "" {
        s.log.Info().Str("field", s.storyPointsField).Msg("story points field discovered")
    } else {
        s.log.Warn().Msg("story points field not found; sums will be 0")
    }
}

func toStrAny(v any) string {
    if v == nil { return "" }
    if s, ok := v.(string); ok { return s }
    return fmt.Sprintf("%v", v)
}

func toInt64Any(v any) int64 {
    switch t := v.(type) {
    case float64: return int64(t)
    case int64: return t
    case int: return int64(t)
    }
    return 0
}

func parseTimeUTC(v any) *time.Time {
    s, _ := v.(string)
    if s == "" { return nil }
    layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700", "2006-01-02"}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil {
            tt := t.UTC(); return &tt
        }
    }
    return nil
}

// decodeSprint maps one Agile API sprint value onto the domain type.
func decodeSprint(m map[string]any) domain.Sprint {
    return domain.Sprint{
        ID:        toInt64Any(m["id"]),
        Name:      toStrAny(m["name"]),
        State:     toStrAny(m["state"]),
        StartDate: toStrAny(m["startDate"]),
        EndDate:   toStrAny(m["endDate"]),
        Goal:      toStrAny(m["goal"]),
    }
}

// FetchSprints pages through every sprint on the board.
func (s *Service) FetchSprints(ctx context.Context, boardID int64) ([]domain.Sprint, error) {
    var out []domain.Sprint
    start := 0
    for {
        page, err := s.jira.Sprints(ctx, boardID, start, 50)
        if err != nil { return out, err }
        pm, _ := page.(map[string]any)
        vals, _ := pm["values"].([]any)
        if len(vals) == 0 { break }
        for _, v0 := range vals {
            if m, _ := v0.(map[string]any); m != nil { out = append(out, decodeSprint(m)) }
        }
        if isLast, _ := pm["isLast"].(bool); isLast { break }
        if len(vals) < 50 { break }
        start += 50
    }
    return out, nil
}

// FetchSprintIssues pages through a sprint's issues, raw Jira shape.
func (s *Service) FetchSprintIssues(ctx context.Context, sprintID int64) ([]map[string]any, error) {
    var out []map[string]any
    start := 0
    for {
        page, err := s.jira.SprintIssues(ctx, sprintID, start, 50)
        if err != nil { return out, err }
        pm, _ := page.(map[string]any)
        arr, _ := pm["issues"].([]any)
        if len(arr) == 0 { break }
        for _, v0 := range arr {
            if m, _ := v0.(map[string]any); m != nil { out = append(out, m) }
        }
        if len(arr) < 50 { break }
        start += 50
    }
    return out, nil
}

// deriveStories projects the story-typed issues into the shape the
// summary aggregator consumes. Completion is binary off the Jira status
// category: done means 100, anything else 0.
func deriveStories(issues []map[string]any, fieldID string) []domain.Story {
    var out []domain.Story
    for _, issue := range issues {
        if !analytics.IsStoryIssue(issue) { continue }
        fields, _ := issue["fields"].(map[string]any)
        if fields == nil { fields = map[string]any{} }
        st := domain.Story{
            IssueKey: toStrAny(issue["key"]),
            Summary:  toStrAny(fields["summary"]),
        }
        if status, _ := fields["status"].(map[string]any); status != nil {
            st.Status = toStrAny(status["name"])
            if cat, _ := status["statusCategory"].(map[string]any); cat != nil {
                if toStrAny(cat["key"]) == "done" { st.CompletionPct = 100 }
            }
        }
        if as, _ := fields["assignee"].(map[string]any); as != nil { st.Assignee = toStrAny(as["displayName"]) }
        if fieldID != "" { st.StoryPoints = fields[fieldID] }
        out = append(out, st)
    }
    return out
}

// issueResolvedAt reads resolutiondate off a raw issue.
func issueResolvedAt(issue map[string]any) *time.Time {
    fields, _ := issue["fields"].(map[string]any)
    if fields == nil { return nil }
    return parseTimeUTC(fields["resolutiondate"])
}

// buildRemainingWork produces the actual burndown series: one point per
// sprint day up to today, remaining = committed scope minus the points
// of issues resolved by that day's end, clamped at zero. Subtasks are
// skipped so their points are not double counted under their parents.
func buildRemainingWork(sprint *domain.Sprint, issues []map[string]any, fieldID string, now time.Time) []domain.RemainingWorkPoint {
    if sprint == nil { return nil }
    start := parseTimeUTC(sprint.StartDate)
    end := parseTimeUTC(sprint.EndDate)
    if start == nil || end == nil || end.Before(*start) { return nil }

    type resolved struct {
        at *time.Time
        sp float64
    }
    var committed float64
    var items []resolved
    for _, issue := range issues {
        if analytics.IsSubtaskIssue(issue) { continue }
        fields, _ := issue["fields"].(map[string]any)
        sp := analytics.StoryPoints(fields, fieldID)
        committed += sp
        if sp > 0 { items = append(items, resolved{at: issueResolvedAt(issue), sp: sp}) }
    }

    startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
    endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
    var out []domain.RemainingWorkPoint
    for day := startDay; !day.After(endDay); day = day.Add(24 * time.Hour) {
        if day.After(now) { break }
        dayEnd := day.Add(24*time.Hour - time.Nanosecond)
        remaining := committed
        for _, it := range items {
            if it.at != nil && !it.at.After(dayEnd) { remaining -= it.sp }
        }
        if remaining < 0 { remaining = 0 }
        out = append(out, domain.RemainingWorkPoint{Date: day.Format("2006-01-02"), RemainingSP: remaining})
    }
    return out
}

// BuildSprintReport assembles the full report for the first configured
// board. sprintID > 0 pins the sprint, otherwise resolution follows the
// configured options.
func (s *Service) BuildSprintReport(ctx context.Context, sprintID int64) (*domain.SprintReport, error) {
    if err := s.ensureBoards(ctx); err != nil { return nil, err }
    s.ensureStoryPointsField(ctx)
    boardID := s.boardIDs[0]

    sprints, err := s.FetchSprints(ctx, boardID)
    if err != nil { return nil, err }

    opts := analytics.ResolveOptions{
        SprintID:               sprintID,
        RecentClosedFallback:   s.cfg.RecentClosedFallback,
        RecentClosedWithinDays: s.cfg.RecentClosedWithinDays,
    }
    if opts.SprintID == 0 { opts.SprintID = s.cfg.SprintID }
    now := time.Now().UTC()

    current := analytics.ResolveSprintFromList(sprints, opts, now)
    report := &domain.SprintReport{
        RecentSprints: analytics.ResolveRecentSprints(sprints, current, s.cfg.RecentSprintsMax),
        NextSprint:    analytics.ResolveNextSprint(sprints, current),
        BuiltAt:       now,
    }
    if current == nil {
        s.log.Info().Int64("board", boardID).Msg("no current sprint; empty report")
        return report, nil
    }
    report.Sprint = current

    issues, err := s.FetchSprintIssues(ctx, current.ID)
    if err != nil { return nil, err }

    report.Stories = deriveStories(issues, s.storyPointsField)
    report.Summary = analytics.ComputeSprintSummary(report.Stories, issues, s.storyPointsField, s.rules)
    report.ActualBurndown = buildRemainingWork(current, issues, s.storyPointsField, now)
    report.IdealBurndown = analytics.ComputeIdealBurndown(report.ActualBurndown)

    s.log.Info().
        Int64("board", boardID).
        Int64("sprint", current.ID).
        Int("issues", len(issues)).
        Int("stories", len(report.Stories)).
        Msg("sprint report built")
    return report, nil
}

// RefreshReport builds the report and persists it as the latest
// snapshot for the board, with job-run bookkeeping.
func (s *Service) RefreshReport(ctx context.Context) error {
    if err := s.ensureBoards(ctx); err != nil { return err }
    boardID := s.boardIDs[0]
    runID, err := s.repo.StartJobRun(ctx, boardID)
    if err != nil { s.log.Error().Err(err).Msg("start job run failed") }

    report, buildErr := s.BuildSprintReport(ctx, 0)
    var sprintID int64
    var issueCount int
    if report != nil {
        if report.Sprint != nil { sprintID = report.Sprint.ID }
        issueCount = len(report.Stories)
    }
    defer func() {
        if runID != 0 {
            errStr := ""
            if buildErr != nil { errStr = buildErr.Error() }
            _ = s.repo.FinishJobRun(ctx, runID, sprintID, issueCount, buildErr == nil, errStr)
        }
    }()
    if buildErr != nil { return buildErr }

    payload, err := json.Marshal(report)
    if err != nil { return err }
    if _, err := s.repo.SaveSnapshot(ctx, boardID, sprintID, payload); err != nil { return err }
    _ = s.repo.PruneSnapshots(ctx, boardID, 20)
    return nil
}

// GetCurrentReport serves the latest snapshot when one exists and no
// explicit sprint was requested; otherwise builds live.
func (s *Service) GetCurrentReport(ctx context.Context, sprintID int64) (*domain.SprintReport, error) {
    if sprintID == 0 && s.repo != nil {
        if err := s.ensureBoards(ctx); err == nil {
            payload, _, err := s.repo.GetLatestSnapshot(ctx, s.boardIDs[0])
            if err != nil { s.log.Error().Err(err).Msg("snapshot load failed") }
            if len(payload) > 0 {
                var report domain.SprintReport
                if err := json.Unmarshal(payload, &report); err == nil { return &report, nil }
            }
        }
    }
    return s.BuildSprintReport(ctx, sprintID)
}

// RecentSprints lists the navigation tabs without building a report.
func (s *Service) RecentSprints(ctx context.Context) ([]domain.SprintRef, error) {
    if err := s.ensureBoards(ctx); err != nil { return nil, err }
    sprints, err := s.FetchSprints(ctx, s.boardIDs[0])
    if err != nil { return nil, err }
    opts := analytics.ResolveOptions{
        SprintID:               s.cfg.SprintID,
        RecentClosedFallback:   s.cfg.RecentClosedFallback,
        RecentClosedWithinDays: s.cfg.RecentClosedWithinDays,
    }
    current := analytics.ResolveSprintFromList(sprints, opts, time.Now().UTC())
    return analytics.ResolveRecentSprints(sprints, current, s.cfg.RecentSprintsMax), nil
}

func (s *Service) GetLastRun(ctx context.Context) (any, error) {
    return s.repo.GetLastRun(ctx)
}
