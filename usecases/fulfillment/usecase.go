package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"rostersync/clients"
	"rostersync/clients/sheets"
	"rostersync/config"
	"rostersync/core"
	"rostersync/models"
	"rostersync/services/matcher"
	"rostersync/services/names"
)

// headerSearchRows bounds how far down the sheet the header row may be
const headerSearchRows = 10

// FulfillmentUseCase applies a deferred command to the roster and reports back to the thread.
// It holds no per-task state; concurrent calls share nothing but their collaborators.
type FulfillmentUseCase struct {
	tokenSource    clients.TokenSource
	rosterStorage  clients.RosterStorage
	followupSender clients.FollowupSender
	commands       models.CommandConfig
	sheetsConfig   config.SheetsConfig
	callTimeout    time.Duration
}

// NewFulfillmentUseCase creates a new instance of FulfillmentUseCase. tokenSource may be nil
// when the service account is not configured; such tasks end with a configuration error.
func NewFulfillmentUseCase(
	tokenSource clients.TokenSource,
	rosterStorage clients.RosterStorage,
	followupSender clients.FollowupSender,
	commands models.CommandConfig,
	sheetsConfig config.SheetsConfig,
	callTimeout time.Duration,
) *FulfillmentUseCase {
	return &FulfillmentUseCase{
		tokenSource:    tokenSource,
		rosterStorage:  rosterStorage,
		followupSender: followupSender,
		commands:       commands,
		sheetsConfig:   sheetsConfig,
		callTimeout:    callTimeout,
	}
}

func (u *FulfillmentUseCase) FulfillTask(ctx context.Context, payload models.TaskPayload) error {
	log.Printf("📋 Starting to fulfill task %s from %s (enqueued at %s)", payload.TaskID, payload.Source, payload.EnqueuedAt.Format(time.RFC3339))

	interaction, err := models.ParseInteraction(payload.Interaction)
	if err != nil {
		log.Printf("❌ Dropping task %s with malformed interaction: %v", payload.TaskID, err)
		return fmt.Errorf("task %s: %w", payload.TaskID, err)
	}

	return u.Fulfill(ctx, interaction)
}

// Fulfill posts exactly one followup for the interaction. Failures after the payload has
// been validated are absorbed into a fixed failure followup and returned for logging only.
func (u *FulfillmentUseCase) Fulfill(ctx context.Context, interaction models.Interaction) error {
	if !interaction.IsCommand() {
		return fmt.Errorf("interaction %s is not an application command: %w", interaction.ID, core.ErrProtocol)
	}
	if interaction.ApplicationID == "" || interaction.Token == "" {
		return fmt.Errorf("interaction %s has no application id or token: %w", interaction.ID, core.ErrProtocol)
	}

	log.Printf("📋 Starting to fulfill /%s for interaction %s", interaction.Command.Name, interaction.ID)

	spec, ok := u.commands.Lookup(interaction.Command.Name)
	if !ok {
		log.Printf("⚠️ Unsupported command /%s reached the worker", interaction.Command.Name)
		u.sendFollowup(ctx, interaction, MessageUnsupportedCommand)
		return fmt.Errorf("unsupported command %q: %w", interaction.Command.Name, core.ErrProtocol)
	}

	targets := names.ResolveTargets(interaction.Command)
	if len(targets) == 0 {
		log.Printf("⚠️ Interaction %s names no target users", interaction.ID)
		u.sendFollowup(ctx, interaction, MessageNoTargets)
		return nil
	}

	report, err := u.updateRoster(ctx, spec, targets)
	if err != nil {
		log.Printf("❌ Failed to update roster for interaction %s: %v", interaction.ID, err)
		u.sendFollowup(ctx, interaction, failureMessage(err))
		return err
	}

	if err := u.postFollowup(ctx, interaction, report); err != nil {
		log.Printf("❌ Failed to post report for interaction %s: %v", interaction.ID, err)
		u.sendFollowup(ctx, interaction, MessageUpdateFailed)
		return err
	}

	log.Printf("✅ Completed /%s for interaction %s", interaction.Command.Name, interaction.ID)
	return nil
}

// updateRoster reads the sheet, matches targets and writes the done markers. It returns
// the report to post.
func (u *FulfillmentUseCase) updateRoster(ctx context.Context, spec models.CommandSpec, targets []models.DisplayNameTarget) (string, error) {
	if !u.sheetsConfig.IsConfigured() || u.tokenSource == nil {
		return "", fmt.Errorf("roster spreadsheet is not configured: %w", core.ErrConfiguration)
	}

	accessToken, err := u.fetchToken(ctx)
	if err != nil {
		return "", &tokenError{err: err}
	}

	rows, err := u.readRoster(ctx, accessToken)
	if err != nil {
		return "", err
	}

	layout, err := locateColumns(rows, u.sheetsConfig.NameHeader, spec.TargetColumnHeader)
	if err != nil {
		return "", err
	}

	rosterRows := matcher.BuildRosterRows(layout.nameCells(rows))
	results := matcher.MatchTargets(targets, rosterRows)

	updates := matcher.BuildSheetUpdates(results, func(rowIndex int) string {
		return sheets.CellRange(u.sheetsConfig.SheetName, layout.targetColumn, layout.rowNumber(rowIndex))
	}, u.sheetsConfig.DoneMarker)

	if len(updates) > 0 {
		writeCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
		defer cancel()
		if err := u.rosterStorage.BatchUpdateValues(writeCtx, accessToken, u.sheetsConfig.SpreadsheetID, updates); err != nil {
			return "", fmt.Errorf("failed to write %d roster cells: %w", len(updates), err)
		}
		log.Printf("✅ Wrote %d cells to column %q", len(updates), spec.TargetColumnHeader)
	} else {
		log.Printf("🔍 No matched rows, skipping roster write")
	}

	return composeReport(spec.TargetColumnHeader, results), nil
}

func (u *FulfillmentUseCase) fetchToken(ctx context.Context) (string, error) {
	tokenCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	accessToken, err := u.tokenSource.Token(tokenCtx, clients.ScopeSpreadsheets)
	if err != nil {
		return "", fmt.Errorf("failed to mint sheets token: %w", err)
	}
	return accessToken, nil
}

func (u *FulfillmentUseCase) readRoster(ctx context.Context, accessToken string) ([][]string, error) {
	readCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	rows, err := u.rosterStorage.GetValues(readCtx, accessToken, u.sheetsConfig.SpreadsheetID, sheets.QuoteSheetName(u.sheetsConfig.SheetName))
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	log.Printf("📊 Read %d roster rows from %q", len(rows), u.sheetsConfig.SheetName)
	return rows, nil
}

func (u *FulfillmentUseCase) postFollowup(ctx context.Context, interaction models.Interaction, content string) error {
	followupCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()
	return u.followupSender.SendFollowup(followupCtx, interaction.ApplicationID, interaction.Token, content)
}

// sendFollowup is best effort: there is nobody left to report a failure to
func (u *FulfillmentUseCase) sendFollowup(ctx context.Context, interaction models.Interaction, content string) {
	if err := u.postFollowup(ctx, interaction, content); err != nil {
		log.Printf("❌ Failed to send followup for interaction %s: %v", interaction.ID, err)
	}
}

// tokenError marks a failed credential exchange so the user sees the dedicated message
type tokenError struct {
	err error
}

func (e *tokenError) Error() string { return e.err.Error() }
func (e *tokenError) Unwrap() error { return e.err }

// missingHeaderError reports a roster without the expected column
type missingHeaderError struct {
	header string
}

func (e *missingHeaderError) Error() string {
	return fmt.Sprintf("roster has no %q column", e.header)
}

func (e *missingHeaderError) Unwrap() error { return core.ErrConfiguration }

func failureMessage(err error) string {
	var tokenErr *tokenError
	var headerErr *missingHeaderError
	switch {
	case errors.As(err, &tokenErr):
		return MessageTokenFailed
	case errors.As(err, &headerErr):
		return missingHeaderMessage(headerErr.header)
	case core.IsConfigurationError(err):
		return MessageNotConfigured
	default:
		return MessageUpdateFailed
	}
}

type rosterLayout struct {
	headerRow    int
	nameColumn   int
	targetColumn int
}

// locateColumns finds the header row (the first of the leading rows that contains
// nameHeader) and the indices of the name and target columns in it.
func locateColumns(rows [][]string, nameHeader, targetHeader string) (rosterLayout, error) {
	for i := 0; i < len(rows) && i < headerSearchRows; i++ {
		nameColumn := columnIndex(rows[i], nameHeader)
		if nameColumn < 0 {
			continue
		}
		targetColumn := columnIndex(rows[i], targetHeader)
		if targetColumn < 0 {
			return rosterLayout{}, &missingHeaderError{header: targetHeader}
		}
		return rosterLayout{headerRow: i, nameColumn: nameColumn, targetColumn: targetColumn}, nil
	}
	return rosterLayout{}, &missingHeaderError{header: nameHeader}
}

func columnIndex(row []string, header string) int {
	for i, cell := range row {
		if strings.TrimSpace(cell) == header {
			return i
		}
	}
	return -1
}

// nameCells returns the name cell of every data row; short rows yield empty names
func (l rosterLayout) nameCells(rows [][]string) []string {
	dataRows := rows[l.headerRow+1:]
	result := make([]string, len(dataRows))
	for i, row := range dataRows {
		if l.nameColumn < len(row) {
			result[i] = row[l.nameColumn]
		}
	}
	return result
}

// rowNumber converts a data row index to the one-based sheet row number
func (l rosterLayout) rowNumber(rowIndex int) int {
	return l.headerRow + 2 + rowIndex
}
