package domain

import "time"

// Sprint is an immutable snapshot of a Jira Agile sprint as returned by
// the board sprint endpoint. Dates stay as ISO strings; Jira omits them
// for future sprints that are not scheduled yet.
type Sprint struct {
    ID        int64  `json:"id"`
    Name      string `json:"name"`
    State     string `json:"state"`
    StartDate string `json:"startDate"`
    EndDate   string `json:"endDate"`
    Goal      string `json:"goal,omitempty"`
}

// SprintRef is the flat projection used for sprint navigation tabs.
// Missing fields come out as empty strings, never null.
type SprintRef struct {
    ID        int64  `json:"id"`
    Name      string `json:"name"`
    State     string `json:"state"`
    StartDate string `json:"startDate"`
    EndDate   string `json:"endDate"`
}

type NextSprint struct {
    ID        int64  `json:"id"`
    Name      string `json:"name"`
    Goal      string `json:"goal"`
    StartDate string `json:"startDate"`
    EndDate   string `json:"endDate"`
}

// Story is derived upstream from raw issues: one row per story-typed
// issue on the sprint. StoryPoints keeps the raw field value (number,
// string or nil); the aggregator owns the numeric fallback.
type Story struct {
    IssueKey      string  `json:"issueKey"`
    Summary       string  `json:"summary,omitempty"`
    Status        string  `json:"status,omitempty"`
    Assignee      string  `json:"assignee,omitempty"`
    StoryPoints   any     `json:"storyPoints"`
    CompletionPct float64 `json:"completionPct"`
}

// RemainingWorkPoint is one day of a burndown series.
type RemainingWorkPoint struct {
    Date        string  `json:"date"`
    RemainingSP float64 `json:"remainingSP"`
}

type SprintSummary struct {
    TotalStories  int     `json:"totalStories"`
    DoneStories   int     `json:"doneStories"`
    TotalSP       float64 `json:"totalSP"`
    DoneSP        float64 `json:"doneSP"`
    PercentDone   int     `json:"percentDone"`
    NewFeaturesSP float64 `json:"newFeaturesSP"`
    SupportOpsSP  float64 `json:"supportOpsSP"`
    TotalAllSP    float64 `json:"totalAllSP"`
}

// SprintReport is the full view model handed to the presentation layer.
type SprintReport struct {
    Sprint         *Sprint              `json:"sprint"`
    RecentSprints  []SprintRef          `json:"recentSprints"`
    NextSprint     *NextSprint          `json:"nextSprint"`
    Stories        []Story              `json:"stories"`
    Summary        SprintSummary        `json:"summary"`
    IdealBurndown  []RemainingWorkPoint `json:"idealBurndown"`
    ActualBurndown []RemainingWorkPoint `json:"actualBurndown"`
    BuiltAt        time.Time            `json:"builtAt"`
}
