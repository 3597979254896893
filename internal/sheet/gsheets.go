package sheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"academy/internal/apperr"
)

// GoogleSheets talks to a hosted spreadsheet through the Sheets v4 API.
// Every worksheet's first row is its header.
type GoogleSheets struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetIDs      map[Table]int64
}

// NewGoogleSheets opens the spreadsheet with service-account credentials
// and verifies that every required worksheet exists.
func NewGoogleSheets(ctx context.Context, spreadsheetID, credentialsFile string) (*GoogleSheets, error) {
	if spreadsheetID == "" {
		return nil, apperr.New(apperr.Connection, "sheets open", "spreadsheet id not configured")
	}
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Connection, "sheets open", err)
	}
	g := &GoogleSheets{svc: svc, spreadsheetID: spreadsheetID}
	if err := g.loadSheetIDs(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GoogleSheets) loadSheetIDs(ctx context.Context) error {
	doc, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return classify("sheets open", err)
	}
	ids := make(map[Table]int64, len(doc.Sheets))
	for _, s := range doc.Sheets {
		if s.Properties == nil {
			continue
		}
		ids[Table(s.Properties.Title)] = s.Properties.SheetId
	}
	for _, t := range AllTables {
		if _, ok := ids[t]; !ok {
			return apperr.New(apperr.Connection, "sheets open", fmt.Sprintf("worksheet %q missing", t))
		}
	}
	g.sheetIDs = ids
	return nil
}

// Ping checks that the spreadsheet is still reachable.
func (g *GoogleSheets) Ping(ctx context.Context) error {
	_, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return classify("sheets ping", err)
}

func (g *GoogleSheets) values(ctx context.Context, t Table) (header []string, rows [][]string, err error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, string(t)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, nil, classify("sheets read "+string(t), err)
	}
	if len(resp.Values) == 0 {
		return Schemas[t], nil, nil
	}
	header = cellsToStrings(resp.Values[0])
	for _, raw := range resp.Values[1:] {
		rows = append(rows, cellsToStrings(raw))
	}
	return header, rows, nil
}

// Records reads every data row of t as header-keyed records.
func (g *GoogleSheets) Records(ctx context.Context, t Table) ([]Record, error) {
	if err := checkTable("sheets records", t); err != nil {
		return nil, err
	}
	header, rows, err := g.values(ctx, t)
	if err != nil {
		return nil, err
	}
	return toRecords(header, rows), nil
}

// Append inserts rows after the last data row in one API call. Cells are
// written RAW so dates and numbers come back exactly as sent.
func (g *GoogleSheets) Append(ctx context.Context, t Table, rows [][]string) error {
	if err := checkTable("sheets append", t); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: stringsToCells(rows)}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, string(t)+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return classify("sheets append "+string(t), err)
}

// Find locates the first data row whose column equals value.
func (g *GoogleSheets) Find(ctx context.Context, t Table, column, value string) (int, error) {
	if err := checkTable("sheets find", t); err != nil {
		return 0, err
	}
	header, rows, err := g.values(ctx, t)
	if err != nil {
		return 0, err
	}
	idx := findIndex(header, rows, column, value)
	if idx < 0 {
		return 0, apperr.New(apperr.NotFound, "sheets find", fmt.Sprintf("%s: no row with %s=%s", t, column, value))
	}
	return idx, nil
}

// Update writes values into a located row starting at startCol.
func (g *GoogleSheets) Update(ctx context.Context, t Table, row, startCol int, values []string) error {
	if err := checkTable("sheets update", t); err != nil {
		return err
	}
	if startCol < 0 || startCol+len(values) > len(Schemas[t]) {
		return fmt.Errorf("sheets update: %s: range %d+%d exceeds columns", t, startCol, len(values))
	}
	// Data row 0 is spreadsheet row 2.
	rng := fmt.Sprintf("%s!%s%d:%s%d", t, columnLetter(startCol), row+2, columnLetter(startCol+len(values)-1), row+2)
	vr := &sheets.ValueRange{Values: stringsToCells([][]string{values})}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return classify("sheets update "+string(t), err)
}

// Delete removes a data row from its worksheet.
func (g *GoogleSheets) Delete(ctx context.Context, t Table, row int) error {
	if err := checkTable("sheets delete", t); err != nil {
		return err
	}
	sid, ok := g.sheetIDs[t]
	if !ok {
		return apperr.New(apperr.NotFound, "sheets delete", fmt.Sprintf("worksheet %q missing", t))
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sid,
					Dimension:       "ROWS",
					StartIndex:      int64(row + 1),
					EndIndex:        int64(row + 2),
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}
	_, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return classify("sheets delete "+string(t), err)
}

// Count returns the number of data rows.
func (g *GoogleSheets) Count(ctx context.Context, t Table) (int, error) {
	if err := checkTable("sheets count", t); err != nil {
		return 0, err
	}
	_, rows, err := g.values(ctx, t)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests:
			return apperr.Wrap(apperr.RateLimited, op, err)
		case http.StatusNotFound:
			return apperr.Wrap(apperr.NotFound, op, err)
		case http.StatusBadRequest:
			return apperr.Wrap(apperr.Validation, op, err)
		}
	}
	return apperr.Wrap(apperr.Connection, op, err)
}

func cellsToStrings(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

func stringsToCells(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

// columnLetter converts a zero-based column index to A1 letters.
func columnLetter(col int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name
}
