package services

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

func rawIssue(key, typeName, statusCat string, points any, resolved string) map[string]any {
    fields := map[string]any{
        "issuetype":         map[string]any{"name": typeName},
        "summary":           "summary of " + key,
        "customfield_10016": points,
        "status": map[string]any{
            "name":           statusCat,
            "statusCategory": map[string]any{"key": statusCat},
        },
    }
    if resolved != "" { fields["resolutiondate"] = resolved }
    return map[string]any{"key": key, "fields": fields}
}

func TestDeriveStories(t *testing.T) {
    issues := []map[string]any{
        rawIssue("A-1", "Story", "done", float64(5), "2025-06-03T10:00:00Z"),
        rawIssue("A-2", "Story", "indeterminate", float64(3), ""),
        rawIssue("A-3", "Bug", "done", float64(2), "2025-06-04T10:00:00Z"),
        rawIssue("A-4", "Sub-task", "done", float64(1), ""),
    }
    stories := deriveStories(issues, "customfield_10016")
    require.Len(t, stories, 2)
    assert.Equal(t, "A-1", stories[0].IssueKey)
    assert.Equal(t, 100.0, stories[0].CompletionPct)
    assert.Equal(t, float64(5), stories[0].StoryPoints)
    assert.Equal(t, "A-2", stories[1].IssueKey)
    assert.Equal(t, 0.0, stories[1].CompletionPct)
}

func TestDeriveStories_NoFieldIDLeavesPointsNil(t *testing.T) {
    stories := deriveStories([]map[string]any{rawIssue("A-1", "Story", "done", float64(5), "")}, "")
    require.Len(t, stories, 1)
    assert.Nil(t, stories[0].StoryPoints)
}

func TestBuildRemainingWork(t *testing.T) {
    sprint := &domain.Sprint{ID: 5, StartDate: "2025-06-01T08:00:00Z", EndDate: "2025-06-05T17:00:00Z"}
    issues := []map[string]any{
        rawIssue("A-1", "Story", "done", float64(5), "2025-06-02T10:00:00Z"),
        rawIssue("A-2", "Story", "indeterminate", float64(3), ""),
        rawIssue("A-3", "Bug", "done", float64(2), "2025-06-04T10:00:00Z"),
        // subtask points must not count toward scope
        rawIssue("A-4", "Sub-task", "done", float64(7), "2025-06-02T11:00:00Z"),
    }
    now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

    got := buildRemainingWork(sprint, issues, "customfield_10016", now)
    require.Len(t, got, 3) // days after "now" are omitted
    assert.Equal(t, domain.RemainingWorkPoint{Date: "2025-06-01", RemainingSP: 10}, got[0])
    assert.Equal(t, domain.RemainingWorkPoint{Date: "2025-06-02", RemainingSP: 5}, got[1])
    assert.Equal(t, domain.RemainingWorkPoint{Date: "2025-06-03", RemainingSP: 5}, got[2])
}

func TestBuildRemainingWork_UnparseableDates(t *testing.T) {
    now := time.Now().UTC()
    assert.Nil(t, buildRemainingWork(&domain.Sprint{StartDate: "", EndDate: "2025-06-05"}, nil, "f", now))
    assert.Nil(t, buildRemainingWork(&domain.Sprint{StartDate: "garbage", EndDate: "2025-06-05"}, nil, "f", now))
    assert.Nil(t, buildRemainingWork(nil, nil, "f", now))
}

type fakeJira struct {
    sprints map[int64][]any
    issues  map[int64][]any
    fields  []any
}

func (f *fakeJira) Boards(ctx context.Context, startAt, max int) (any, error) {
    return map[string]any{"values": []any{map[string]any{"id": float64(7), "name": "ALPHA BOARD"}}}, nil
}

func (f *fakeJira) Sprints(ctx context.Context, boardID int64, startAt, max int) (any, error) {
    return map[string]any{"values": f.sprints[boardID], "isLast": true}, nil
}

func (f *fakeJira) SprintIssues(ctx context.Context, sprintID int64, startAt, max int) (any, error) {
    return map[string]any{"issues": f.issues[sprintID]}, nil
}

func (f *fakeJira) ResolveBoardsByNames(ctx context.Context, names []string) ([]int64, error) {
    return []int64{7}, nil
}

func (f *fakeJira) Fields(ctx context.Context) (any, error) { return f.fields, nil }

func TestFetchSprints_DecodesValues(t *testing.T) {
    jc := &fakeJira{sprints: map[int64][]any{
        7: {
            map[string]any{"id": float64(5), "name": "Sprint 5", "state": "active", "startDate": "2025-06-01", "endDate": "2025-06-14", "goal": "ship it"},
            map[string]any{"id": float64(6), "name": "Sprint 6", "state": "future"},
        },
    }}
    svc := &Service{jira: jc}
    got, err := svc.FetchSprints(context.Background(), 7)
    require.NoError(t, err)
    require.Len(t, got, 2)
    assert.Equal(t, domain.Sprint{ID: 5, Name: "Sprint 5", State: "active", StartDate: "2025-06-01", EndDate: "2025-06-14", Goal: "ship it"}, got[0])
    assert.Equal(t, "", got[1].StartDate)
}
