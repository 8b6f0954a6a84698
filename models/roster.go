package models

// DisplayNameTarget is one targeted user, in command order. Duplicates are kept.
type DisplayNameTarget struct {
	OriginalName   string
	NormalizedName string
}

// RosterRow is derived from one data row of the roster's name column on every fetch
type RosterRow struct {
	RawName string
	Aliases map[string]struct{}
}

func (r RosterRow) HasAlias(alias string) bool {
	_, ok := r.Aliases[alias]
	return ok
}

type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusNotFound  MatchStatus = "not_found"
	MatchStatusAmbiguous MatchStatus = "ambiguous"
)

// MatchResult is the resolution of one DisplayNameTarget.
// RowIndex is meaningful only when Status is MatchStatusMatched,
// Candidates only when Status is MatchStatusAmbiguous.
type MatchResult struct {
	Status      MatchStatus
	DisplayName string
	RowIndex    int
	Candidates  []string
}

func Matched(displayName string, rowIndex int) MatchResult {
	return MatchResult{Status: MatchStatusMatched, DisplayName: displayName, RowIndex: rowIndex}
}

func NotFound(displayName string) MatchResult {
	return MatchResult{Status: MatchStatusNotFound, DisplayName: displayName, RowIndex: -1}
}

func Ambiguous(displayName string, candidates []string) MatchResult {
	return MatchResult{Status: MatchStatusAmbiguous, DisplayName: displayName, RowIndex: -1, Candidates: candidates}
}

// SheetUpdate is a single cell write addressed in A1 notation
type SheetUpdate struct {
	CellRange string
	Value     string
}
