// Command matchroster runs the roster matcher offline against a roster export,
// so operators can see how display names will resolve before running a command.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"

	"rostersync/models"
	"rostersync/services/matcher"
)

type Options struct {
	Roster  string   `long:"roster" short:"r" description:"File with one roster name per line ('-' reads stdin)" required:"true"`
	Targets []string `long:"target" short:"t" description:"Display name to resolve (repeatable)" required:"true"`
	Aliases bool     `long:"aliases" description:"Print the alias set extracted from every roster row"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts Options, out io.Writer) error {
	rawNames, err := readRoster(opts.Roster)
	if err != nil {
		return err
	}

	rows := matcher.BuildRosterRows(rawNames)
	if opts.Aliases {
		for i, row := range rows {
			aliases := make([]string, 0, len(row.Aliases))
			for alias := range row.Aliases {
				aliases = append(aliases, alias)
			}
			sort.Strings(aliases)
			fmt.Fprintf(out, "%4d  %s  %s\n", i, row.RawName, color.HiBlackString("{%s}", strings.Join(aliases, ", ")))
		}
		fmt.Fprintln(out)
	}

	targets := make([]models.DisplayNameTarget, len(opts.Targets))
	for i, name := range opts.Targets {
		targets[i] = matcher.NewTarget(name)
	}

	for _, result := range matcher.MatchTargets(targets, rows) {
		fmt.Fprintln(out, formatResult(result, rows))
	}
	return nil
}

func formatResult(result models.MatchResult, rows []models.RosterRow) string {
	switch result.Status {
	case models.MatchStatusMatched:
		return color.GreenString("✅ %s -> row %d (%s)", result.DisplayName, result.RowIndex, rows[result.RowIndex].RawName)
	case models.MatchStatusAmbiguous:
		return color.YellowString("⚠️ %s -> ambiguous: %s", result.DisplayName, strings.Join(result.Candidates, " / "))
	default:
		return color.RedString("❌ %s -> not found", result.DisplayName)
	}
}

func readRoster(path string) ([]string, error) {
	var reader io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open roster file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var names []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		names = append(names, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return names, nil
}
