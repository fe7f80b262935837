package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// contentTypeJSON is the Content-Type for all JSON request bodies.
const contentTypeJSON = "application/json"

// valueRange mirrors the Sheets API ValueRange JSON. With the default
// FORMATTED_VALUE render option every cell arrives as a string, which is
// exactly the shape the rest of the system consumes.
type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values,omitempty"`
}

// ReadRange reads a cell range in A1 notation and returns the values as an
// ordered sequence of rows of strings. An empty range yields a nil slice,
// not an error.
func (c *Client) ReadRange(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	c.logger.Debug("reading range",
		slog.String("spreadsheet_id", spreadsheetID),
		slog.String("range", a1Range),
	)

	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.urls.Sheets, url.PathEscape(spreadsheetID), url.PathEscape(a1Range))

	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("sheets: decoding value range: %w", err)
	}

	return vr.Values, nil
}

// UpdateRange overwrites the given A1 range with values. The range and the
// value matrix must agree in shape; the API rejects mismatches.
func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, a1Range string, values [][]string) error {
	c.logger.Debug("updating range",
		slog.String("spreadsheet_id", spreadsheetID),
		slog.String("range", a1Range),
		slog.Int("rows", len(values)),
	)

	body, err := json.Marshal(valueRange{Values: values})
	if err != nil {
		return fmt.Errorf("sheets: encoding value range: %w", err)
	}

	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueInputOption=USER_ENTERED",
		c.urls.Sheets, url.PathEscape(spreadsheetID), url.PathEscape(a1Range))

	resp, err := c.do(ctx, http.MethodPut, u, contentTypeJSON, body)
	if err != nil {
		return err
	}

	resp.Body.Close()

	return nil
}

// AppendRange appends rows after the last occupied row of the table that
// the A1 range intersects.
func (c *Client) AppendRange(ctx context.Context, spreadsheetID, a1Range string, values [][]string) error {
	c.logger.Debug("appending rows",
		slog.String("spreadsheet_id", spreadsheetID),
		slog.String("range", a1Range),
		slog.Int("rows", len(values)),
	)

	body, err := json.Marshal(valueRange{Values: values})
	if err != nil {
		return fmt.Errorf("sheets: encoding value range: %w", err)
	}

	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS",
		c.urls.Sheets, url.PathEscape(spreadsheetID), url.PathEscape(a1Range))

	resp, err := c.do(ctx, http.MethodPost, u, contentTypeJSON, body)
	if err != nil {
		return err
	}

	resp.Body.Close()

	return nil
}
