package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/huangsam/barriernavi/internal/contract"
	"golang.org/x/text/encoding/japanese"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// headerAliases lists the accepted CSV header names per column: the Japanese
// open-data header first, then English forms.
var headerAliases = map[string][]string{
	"id":                                  {"ID", "id", "Id"},
	"railway_operator":                    {"鉄道事業者名", "railway_operator", "Railway Operator"},
	"station_name":                        {"鉄道駅の名称", "station_name", "Station Name"},
	"line_name":                           {"路線名", "line_name", "Line Name"},
	"prefecture":                          {"都道府県", "prefecture", "Prefecture"},
	"city":                                {"市", "city", "City"},
	"step_response_status":                {"段差への対応", "step_response_status"},
	"num_platforms":                       {"プラットホームの数", "num_platforms"},
	"num_step_free_platforms":             {"段差が解消されているプラットホームの数", "num_step_free_platforms"},
	"num_elevators":                       {"エレベーターの設置基数", "num_elevators"},
	"num_compliant_elevators":             {"移動等円滑化基準に適合しているエレベーターの設置基数", "num_compliant_elevators"},
	"num_escalators":                      {"エスカレーターの設置基数", "num_escalators"},
	"num_compliant_escalators":            {"移動等円滑化基準に適合しているエスカレーターの設置基数", "num_compliant_escalators"},
	"num_other_lifts":                     {"その他の昇降機の設置基数", "num_other_lifts"},
	"num_slopes":                          {"傾斜路の設置箇所数", "num_slopes"},
	"num_compliant_slopes":                {"移動等円滑化基準に適合している傾斜路の設置箇所数", "num_compliant_slopes"},
	"has_tactile_paving":                  {"視覚障害者誘導用ブロックの設置の有無", "has_tactile_paving"},
	"has_guidance_system":                 {"案内設備の設置の有無", "has_guidance_system"},
	"has_accessible_restroom":             {"障害者対応型便所の設置の有無", "has_accessible_restroom"},
	"has_accessible_gate":                 {"障害者対応型改札口の設置の有無", "has_accessible_gate"},
	"has_accessible_ticket_machine":       {"障害者対応型券売機の設置の有無", "has_accessible_ticket_machine"},
	"num_wheelchair_accessible_platforms": {"車いす使用者の円滑な乗降が可能なプラットホームの数", "num_wheelchair_accessible_platforms"},
	"has_fall_prevention":                 {"転落防止のための設備の設置の有無", "has_fall_prevention"},
}

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Imported   int  `json:"imported"`
	Skipped    int  `json:"skipped"`
	Positional bool `json:"positional"` // some columns were mapped by position
}

// ImportFile reads a station CSV and replaces the stations table with it.
func ImportFile(ctx context.Context, repo Repository, path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	rows, result, err := ReadStationsCSV(f)
	if err != nil {
		return result, err
	}
	if err := repo.ReplaceStations(ctx, rows); err != nil {
		return result, err
	}
	return result, nil
}

// ReadStationsCSV parses the open-data station CSV. Input may be UTF-8 (with
// or without BOM) or Shift_JIS. Headers are matched by name; columns that
// cannot be matched fall back to their position. Rows without a usable id,
// or repeating an earlier id, are skipped with a warning.
func ReadStationsCSV(r io.Reader) ([]StationRow, ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ImportResult{}, fmt.Errorf("failed to read CSV: %w", err)
	}
	data, err = decodeCSV(data)
	if err != nil {
		return nil, ImportResult{}, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ImportResult{}, fmt.Errorf("CSV file contains no data")
	}
	if err != nil {
		return nil, ImportResult{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	mapping, positional := mapColumns(headers)
	if positional {
		contract.LogWarn("CSV header", fmt.Errorf("some columns were not recognized, mapping them by position"))
	}

	result := ImportResult{Positional: positional}
	rows := []StationRow{}
	seen := make(map[int64]struct{})
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			contract.LogWarn(fmt.Sprintf("skipping CSV line %d", line), err)
			result.Skipped++
			continue
		}
		if err != nil {
			return nil, result, fmt.Errorf("failed to read CSV: %w", err)
		}

		row, err := parseRecord(record, mapping)
		if err == nil {
			if _, dup := seen[row.ID]; dup {
				err = fmt.Errorf("duplicate station id %d", row.ID)
			}
		}
		if err != nil {
			contract.LogWarn(fmt.Sprintf("skipping CSV line %d", line), err)
			result.Skipped++
			continue
		}
		seen[row.ID] = struct{}{}
		rows = append(rows, row)
	}

	result.Imported = len(rows)
	return rows, result, nil
}

// decodeCSV returns the input as UTF-8 without a byte order mark.
func decodeCSV(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("CSV is neither UTF-8 nor Shift_JIS: %w", err)
	}
	return decoded, nil
}

// mapColumns returns the record index for each column and whether any column
// had to be mapped by position.
func mapColumns(headers []string) (map[string]int, bool) {
	mapping := make(map[string]int, len(stationColumns))
	for _, col := range stationColumns {
		for i, header := range headers {
			if slices.Contains(headerAliases[col], strings.TrimSpace(header)) {
				mapping[col] = i
				break
			}
		}
	}
	if len(mapping) == len(stationColumns) {
		return mapping, false
	}

	for i, col := range stationColumns {
		if _, ok := mapping[col]; !ok && i < len(headers) {
			mapping[col] = i
		}
	}
	return mapping, true
}

// parseRecord converts one CSV record. Blank or non-integer readings become NULL.
func parseRecord(record []string, mapping map[string]int) (StationRow, error) {
	field := func(col string) string {
		i, ok := mapping[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	id, err := strconv.ParseInt(field("id"), 10, 64)
	if err != nil {
		return StationRow{}, fmt.Errorf("invalid station id %q", field("id"))
	}

	row := StationRow{ID: id}
	for col, dest := range row.textFields() {
		*dest = nullString(field(col))
	}
	for col, dest := range row.intFields() {
		if v, err := strconv.ParseInt(field(col), 10, 64); err == nil {
			dest.Int64, dest.Valid = v, true
		}
	}
	return row, nil
}
