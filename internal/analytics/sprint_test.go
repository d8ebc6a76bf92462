package analytics

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestResolveSprintFromList_ActiveWinsOverClosed(t *testing.T) {
    sprints := []domain.Sprint{
        {ID: 1, State: "closed", EndDate: "2025-01-10"},
        {ID: 2, State: "active"},
    }
    got := ResolveSprintFromList(sprints, DefaultResolveOptions(), testNow)
    require.NotNil(t, got)
    assert.Equal(t, int64(2), got.ID)
}

func TestResolveSprintFromList_ExplicitIDWinsOverActive(t *testing.T) {
    sprints := []domain.Sprint{
        {ID: 1, State: "closed", EndDate: "2025-01-10"},
        {ID: 2, State: "active"},
    }
    opts := DefaultResolveOptions()
    opts.SprintID = 1
    got := ResolveSprintFromList(sprints, opts, testNow)
    require.NotNil(t, got)
    assert.Equal(t, int64(1), got.ID)
}

func TestResolveSprintFromList_UnknownIDFallsThrough(t *testing.T) {
    sprints := []domain.Sprint{{ID: 2, State: "ACTIVE"}}
    opts := DefaultResolveOptions()
    opts.SprintID = 99
    got := ResolveSprintFromList(sprints, opts, testNow)
    require.NotNil(t, got)
    // state comparison is case-insensitive, original casing preserved
    assert.Equal(t, int64(2), got.ID)
    assert.Equal(t, "ACTIVE", got.State)
}

func TestResolveSprintFromList_RecentClosedFallback(t *testing.T) {
    fiveDaysAgo := testNow.Add(-5 * 24 * time.Hour).Format(time.RFC3339)
    twentyDaysAgo := testNow.Add(-20 * 24 * time.Hour).Format(time.RFC3339)
    sprints := []domain.Sprint{
        {ID: 10, State: "closed", EndDate: twentyDaysAgo},
        {ID: 11, State: "closed", EndDate: fiveDaysAgo},
        {ID: 12, State: "closed", EndDate: "garbage"},
    }

    opts := DefaultResolveOptions()
    got := ResolveSprintFromList(sprints, opts, testNow)
    require.NotNil(t, got)
    assert.Equal(t, int64(11), got.ID)

    opts.RecentClosedWithinDays = 3
    assert.Nil(t, ResolveSprintFromList(sprints, opts, testNow))

    opts = ResolveOptions{RecentClosedFallback: false}
    assert.Nil(t, ResolveSprintFromList(sprints, opts, testNow))
}

func TestResolveSprintFromList_ClosedTieBreaksOnHigherID(t *testing.T) {
    end := testNow.Add(-2 * 24 * time.Hour).Format(time.RFC3339)
    sprints := []domain.Sprint{
        {ID: 21, State: "closed", EndDate: end},
        {ID: 24, State: "closed", EndDate: end},
        {ID: 22, State: "closed", EndDate: end},
    }
    got := ResolveSprintFromList(sprints, DefaultResolveOptions(), testNow)
    require.NotNil(t, got)
    assert.Equal(t, int64(24), got.ID)
}

func TestResolveSprintFromList_EmptyAndNilInput(t *testing.T) {
    assert.Nil(t, ResolveSprintFromList(nil, DefaultResolveOptions(), testNow))
    assert.Nil(t, ResolveSprintFromList([]domain.Sprint{}, DefaultResolveOptions(), testNow))
}

func TestResolveSprintFromList_ReturnsCopy(t *testing.T) {
    sprints := []domain.Sprint{{ID: 2, State: "active", Name: "Sprint 2"}}
    got := ResolveSprintFromList(sprints, DefaultResolveOptions(), testNow)
    require.NotNil(t, got)
    got.Name = "mutated"
    assert.Equal(t, "Sprint 2", sprints[0].Name)
}

func TestResolveRecentSprints_DedupeSortAndCap(t *testing.T) {
    var sprints []domain.Sprint
    for i := 1; i <= 10; i++ {
        sprints = append(sprints, domain.Sprint{
            ID:      int64(i),
            Name:    "S" + string(rune('0'+i%10)),
            State:   "closed",
            EndDate: time.Date(2025, 1, i, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
        })
    }
    // current duplicates id 10 with a differently cased state
    current := &domain.Sprint{ID: 10, Name: "S0", State: "Active", EndDate: sprints[9].EndDate}

    got := ResolveRecentSprints(sprints, current, 6)
    require.Len(t, got, 6)

    seen := map[int64]bool{}
    hasCurrent := false
    for _, ref := range got {
        assert.Falsef(t, seen[ref.ID], "duplicate id %d", ref.ID)
        seen[ref.ID] = true
        if ref.ID == current.ID {
            hasCurrent = true
            assert.Equal(t, "active", ref.State)
        }
    }
    assert.True(t, hasCurrent)

    // newest first
    for i := 1; i < len(got); i++ {
        prev := sprintSortTime(domain.Sprint{EndDate: got[i-1].EndDate, StartDate: got[i-1].StartDate})
        cur := sprintSortTime(domain.Sprint{EndDate: got[i].EndDate, StartDate: got[i].StartDate})
        assert.False(t, cur.After(prev))
    }
}

func TestResolveRecentSprints_DropsFutureKeepsCurrent(t *testing.T) {
    sprints := []domain.Sprint{
        {ID: 1, State: "future", StartDate: "2025-07-01"},
        {ID: 2, State: "closed", EndDate: "2025-05-30"},
    }
    current := &domain.Sprint{ID: 3, State: "future", StartDate: "2025-06-15"}

    got := ResolveRecentSprints(sprints, current, 0)
    require.Len(t, got, 2)
    ids := []int64{got[0].ID, got[1].ID}
    assert.Contains(t, ids, int64(3))
    assert.Contains(t, ids, int64(2))
    assert.NotContains(t, ids, int64(1))
}

func TestResolveRecentSprints_NoCurrent(t *testing.T) {
    sprints := []domain.Sprint{{ID: 2, State: "closed", EndDate: "2025-05-30"}}
    got := ResolveRecentSprints(sprints, nil, 6)
    require.Len(t, got, 1)
    assert.Equal(t, int64(2), got[0].ID)
    // projection defaults, no nulls
    assert.Equal(t, "", got[0].StartDate)
}

func TestResolveNextSprint_PrefersEarliestStart(t *testing.T) {
    current := &domain.Sprint{ID: 5, State: "active", StartDate: "2025-06-01", EndDate: "2025-06-14"}
    sprints := []domain.Sprint{
        *current,
        {ID: 6, State: "future", StartDate: "2025-06-29", Goal: "later"},
        {ID: 7, State: "future", StartDate: "2025-06-15", Goal: "next up"},
        {ID: 8, State: "closed", StartDate: "2025-05-01", EndDate: "2025-05-14"},
    }
    got := ResolveNextSprint(sprints, current)
    require.NotNil(t, got)
    assert.Equal(t, int64(7), got.ID)
    assert.Equal(t, "next up", got.Goal)
}

func TestResolveNextSprint_StartAfterCurrentEndCounts(t *testing.T) {
    // not flagged future, but scheduled after the current sprint ends
    current := &domain.Sprint{ID: 5, State: "active", StartDate: "2025-06-01", EndDate: "2025-06-14"}
    sprints := []domain.Sprint{
        *current,
        {ID: 9, State: "other", StartDate: "2025-06-16"},
    }
    got := ResolveNextSprint(sprints, current)
    require.NotNil(t, got)
    assert.Equal(t, int64(9), got.ID)
}

func TestResolveNextSprint_NilCases(t *testing.T) {
    current := &domain.Sprint{ID: 5, State: "active", EndDate: "2025-06-14"}
    assert.Nil(t, ResolveNextSprint(nil, current))
    assert.Nil(t, ResolveNextSprint([]domain.Sprint{}, current))
    assert.Nil(t, ResolveNextSprint([]domain.Sprint{{ID: 6, State: "future"}}, nil))
    // only the current sprint itself and past sprints: no candidates
    assert.Nil(t, ResolveNextSprint([]domain.Sprint{*current, {ID: 1, State: "closed", StartDate: "2025-05-01"}}, current))
}

func TestResolveNextSprint_UndatedFutureSortsLast(t *testing.T) {
    current := &domain.Sprint{ID: 5, State: "active", EndDate: "2025-06-14"}
    sprints := []domain.Sprint{
        {ID: 6, State: "future"},
        {ID: 7, State: "future", StartDate: "2025-06-20"},
    }
    got := ResolveNextSprint(sprints, current)
    require.NotNil(t, got)
    assert.Equal(t, int64(7), got.ID)
}
