package presence

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	appLog "presenceanalyzer/internal/log"
)

// Record is one user's start/end clock-time pair for one calendar date.
// Start is not required to precede End.
type Record struct {
	Start ClockTime
	End   ClockTime
}

// UserPresence is one user's full history, keyed by date.
type UserPresence map[Date]Record

// Dates returns the dates of p in ascending order.
func (p UserPresence) Dates() []Date {
	dates := make([]Date, 0, len(p))
	for d := range p {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b Date) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})
	return dates
}

// Index maps user identifiers to their presence history. An Index is built
// once per parse and never mutated afterwards.
type Index map[int]UserPresence

// UserIDs returns the user identifiers of idx in ascending order.
func (idx Index) UserIDs() []int {
	ids := make([]int, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string, delimiter rune) (Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("presence: open source: %w", err)
	}
	defer f.Close()

	idx, err := Parse(f, delimiter)
	if err != nil {
		return nil, err
	}
	appLog.Info("presence source parsed", "path", path, "users", len(idx))
	return idx, nil
}

// Parse reads user_id,date,start,end rows from r.
//
// Rows with a column count other than four (headers, footers), a non-integer
// user id, or a date/time that does not match its exact layout are skipped
// and logged at debug level. A later row for the same user and date replaces
// the earlier one. Only read failures of r itself are returned.
func Parse(r io.Reader, delimiter rune) (Index, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	idx := make(Index)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				appLog.Debug("presence row skipped", "line", perr.Line, "reason", perr.Err)
				continue
			}
			return nil, fmt.Errorf("presence: read source: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if len(row) != 4 {
			appLog.Debug("presence row skipped", "line", line, "reason", "expected 4 columns", "columns", len(row))
			continue
		}

		userID, date, rec, err := parseRow(row)
		if err != nil {
			appLog.Debug("presence row skipped", "line", line, "reason", err)
			continue
		}

		user, ok := idx[userID]
		if !ok {
			user = make(UserPresence)
			idx[userID] = user
		}
		user[date] = rec
	}

	return idx, nil
}

func parseRow(row []string) (int, Date, Record, error) {
	userID, err := strconv.Atoi(row[0])
	if err != nil {
		return 0, Date{}, Record{}, fmt.Errorf("user id: %w", err)
	}
	date, err := ParseDate(row[1])
	if err != nil {
		return 0, Date{}, Record{}, fmt.Errorf("date: %w", err)
	}
	start, err := ParseClockTime(row[2])
	if err != nil {
		return 0, Date{}, Record{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseClockTime(row[3])
	if err != nil {
		return 0, Date{}, Record{}, fmt.Errorf("end: %w", err)
	}
	return userID, date, Record{Start: start, End: end}, nil
}
