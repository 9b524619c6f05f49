package sessionlog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"rollcall/internal/services"
)

const stageName = "sessionlog"

// Options controls timestamp interpretation.
type Options struct {
	// Location applies to timestamps without an explicit offset.
	Location *time.Location
}

// ParseString is a convenience wrapper around Parse for in-memory exports.
func ParseString(text string, opts Options) (*Result, error) {
	return Parse(strings.NewReader(text), opts)
}

// Parse reads an export and returns its usable session records in file order.
func Parse(r io.Reader, opts Options) (*Result, error) {
	br := bufio.NewReader(r)
	skipBOM(br)

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, services.Wrap(services.ErrEmptyInput, stageName, "read header", "file is empty", nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, stageName, "read header", "", err)
	}

	columns := resolveHeader(header)
	if _, ok := columns[FieldName]; !ok {
		return nil, services.Wrap(services.ErrMalformedInput, stageName, "read header", "name column not found", nil)
	}

	result := &Result{Columns: orderedFields(columns)}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrMalformedInput, stageName, "read row", "", err)
		}
		line, _ := reader.FieldPos(0)
		if spansLines(row) {
			return nil, services.Wrap(services.ErrMalformedInput, stageName, "read row",
				fmt.Sprintf("unterminated quoted field in row starting at line %d", line), nil)
		}
		if isBlankRow(row) {
			continue
		}
		result.DataRows++

		record, derived, ok := buildRecord(row, columns, opts.Location)
		if !ok {
			result.Dropped++
			continue
		}
		if derived {
			result.DerivedDurations++
		}
		record.Line = line
		result.Records = append(result.Records, record)
	}

	if len(result.Records) == 0 {
		return nil, services.Wrap(services.ErrEmptyInput, stageName, "parse rows", "no usable rows", nil)
	}
	return result, nil
}

func buildRecord(row []string, columns map[Field]int, loc *time.Location) (Record, bool, bool) {
	name := cell(row, columns, FieldName)
	if name == "" {
		return Record{}, false, false
	}
	join, ok := ParseTimestamp(cell(row, columns, FieldJoinTime), loc)
	if !ok {
		return Record{}, false, false
	}
	leave, ok := ParseTimestamp(cell(row, columns, FieldLeaveTime), loc)
	if !ok {
		return Record{}, false, false
	}

	record := Record{
		Name:        name,
		Email:       cell(row, columns, FieldEmail),
		JoinTime:    join,
		LeaveTime:   leave,
		Guest:       ParseBool(cell(row, columns, FieldGuest)),
		WaitingRoom: ParseBool(cell(row, columns, FieldWaitingRoom)),
	}

	derived := false
	if minutes, ok := parseMinutes(cell(row, columns, FieldDuration)); ok {
		record.Duration = minutes
	} else {
		derived = true
		record.Duration = max(0, int(math.Round(leave.Sub(join).Minutes())))
	}
	return record, derived, true
}

func parseMinutes(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	value = strings.ReplaceAll(value, ",", ".")
	if fields := strings.Fields(value); len(fields) > 0 {
		value = fields[0]
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return int(math.Round(parsed)), true
}

func cell(row []string, columns map[Field]int, field Field) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// spansLines reports whether a quoted field swallowed a line break. Export
// rows are single-line, so this only happens when a quote is never closed.
func spansLines(row []string) bool {
	for _, value := range row {
		if strings.ContainsAny(value, "\r\n") {
			return true
		}
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func skipBOM(br *bufio.Reader) {
	r, _, err := br.ReadRune()
	if err != nil {
		return
	}
	if r != '\uFEFF' {
		_ = br.UnreadRune()
	}
}

func orderedFields(columns map[Field]int) []Field {
	all := []Field{FieldName, FieldEmail, FieldJoinTime, FieldLeaveTime, FieldDuration, FieldGuest, FieldWaitingRoom}
	out := make([]Field, 0, len(columns))
	for _, field := range all {
		if _, ok := columns[field]; ok {
			out = append(out, field)
		}
	}
	return out
}
