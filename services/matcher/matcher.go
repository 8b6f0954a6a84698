// Package matcher reconciles chat display names against free-text roster cells.
//
// Resolution is two-tier: exact alias equality first, and only when no row
// matches exactly, bidirectional substring containment. A tier that yields
// several rows reports the target as ambiguous instead of falling through.
package matcher

import (
	"strings"

	"rostersync/models"
)

// BuildRosterRows derives alias sets for the name column, keeping row order
func BuildRosterRows(rawNames []string) []models.RosterRow {
	rows := make([]models.RosterRow, len(rawNames))
	for i, rawName := range rawNames {
		rows[i] = models.RosterRow{
			RawName: rawName,
			Aliases: ExtractAliases(rawName),
		}
	}
	return rows
}

// NewTarget builds a DisplayNameTarget from a display name
func NewTarget(displayName string) models.DisplayNameTarget {
	return models.DisplayNameTarget{
		OriginalName:   displayName,
		NormalizedName: Normalize(displayName),
	}
}

// MatchTargets resolves every target against the roster rows. The result has
// one entry per target in the same order.
func MatchTargets(targets []models.DisplayNameTarget, rows []models.RosterRow) []models.MatchResult {
	results := make([]models.MatchResult, len(targets))
	for i, target := range targets {
		results[i] = matchTarget(target, rows)
	}
	return results
}

func matchTarget(target models.DisplayNameTarget, rows []models.RosterRow) models.MatchResult {
	name := target.NormalizedName
	if name == "" {
		return models.NotFound(target.OriginalName)
	}

	if exact := rowsWhere(rows, func(row models.RosterRow) bool { return row.HasAlias(name) }); len(exact) > 0 {
		return resolve(target, rows, exact)
	}

	partial := rowsWhere(rows, func(row models.RosterRow) bool {
		for alias := range row.Aliases {
			if strings.Contains(name, alias) || strings.Contains(alias, name) {
				return true
			}
		}
		return false
	})
	return resolve(target, rows, partial)
}

func resolve(target models.DisplayNameTarget, rows []models.RosterRow, indices []int) models.MatchResult {
	switch len(indices) {
	case 0:
		return models.NotFound(target.OriginalName)
	case 1:
		return models.Matched(target.OriginalName, indices[0])
	}

	candidates := make([]string, len(indices))
	for i, index := range indices {
		candidates[i] = rows[index].RawName
	}
	return models.Ambiguous(target.OriginalName, candidates)
}

func rowsWhere(rows []models.RosterRow, predicate func(models.RosterRow) bool) []int {
	var indices []int
	for i, row := range rows {
		if predicate(row) {
			indices = append(indices, i)
		}
	}
	return indices
}

// BuildSheetUpdates turns matched results into cell writes. cellForRow maps a
// data row index to its A1 range; two results on the same cell produce one write.
func BuildSheetUpdates(results []models.MatchResult, cellForRow func(rowIndex int) string, value string) []models.SheetUpdate {
	seen := make(map[string]struct{})
	var updates []models.SheetUpdate
	for _, result := range results {
		if result.Status != models.MatchStatusMatched {
			continue
		}
		cell := cellForRow(result.RowIndex)
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		updates = append(updates, models.SheetUpdate{CellRange: cell, Value: value})
	}
	return updates
}
