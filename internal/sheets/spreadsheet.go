package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// spreadsheetResponse mirrors the Sheets API spreadsheet JSON.
// Unexported — callers use Spreadsheet via toSpreadsheet() normalization.
type spreadsheetResponse struct {
	SpreadsheetID  string `json:"spreadsheetId"`
	SpreadsheetURL string `json:"spreadsheetUrl"`
	Properties     struct {
		Title string `json:"title"`
	} `json:"properties"`
	Sheets []sheetEntry `json:"sheets"`
}

type sheetEntry struct {
	Properties sheetProperties `json:"properties"`
}

type sheetProperties struct {
	SheetID        int64           `json:"sheetId,omitempty"`
	Title          string          `json:"title,omitempty"`
	Hidden         bool            `json:"hidden,omitempty"`
	GridProperties *gridProperties `json:"gridProperties,omitempty"`
}

type gridProperties struct {
	FrozenRowCount int `json:"frozenRowCount,omitempty"`
}

// toSpreadsheet normalizes a Sheets API response into our Spreadsheet type.
func (s *spreadsheetResponse) toSpreadsheet() Spreadsheet {
	out := Spreadsheet{
		ID:    s.SpreadsheetID,
		Title: s.Properties.Title,
		URL:   s.SpreadsheetURL,
		Tabs:  make([]Tab, 0, len(s.Sheets)),
	}

	for _, entry := range s.Sheets {
		out.Tabs = append(out.Tabs, Tab{
			ID:     entry.Properties.SheetID,
			Title:  entry.Properties.Title,
			Hidden: entry.Properties.Hidden,
		})
	}

	return out
}

// SpreadsheetMeta returns the title and tab list of a spreadsheet without
// grid data.
func (c *Client) SpreadsheetMeta(ctx context.Context, spreadsheetID string) (*Spreadsheet, error) {
	c.logger.Debug("fetching spreadsheet metadata",
		slog.String("spreadsheet_id", spreadsheetID),
	)

	u := fmt.Sprintf("%s/spreadsheets/%s?includeGridData=false",
		c.urls.Sheets, url.PathEscape(spreadsheetID))

	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr spreadsheetResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("sheets: decoding spreadsheet response: %w", err)
	}

	meta := sr.toSpreadsheet()

	return &meta, nil
}

// createSpreadsheetRequest mirrors the Sheets API create request body.
type createSpreadsheetRequest struct {
	Properties struct {
		Title string `json:"title"`
	} `json:"properties"`
	Sheets []sheetEntry `json:"sheets,omitempty"`
}

// TabSpec describes one tab to create with a new spreadsheet.
type TabSpec struct {
	Title     string
	Hidden    bool
	FrozenTop bool
}

// CreateSpreadsheet creates a spreadsheet with the given title and tabs and
// returns its normalized metadata (including server-assigned tab IDs).
func (c *Client) CreateSpreadsheet(ctx context.Context, title string, tabs []TabSpec) (*Spreadsheet, error) {
	c.logger.Info("creating spreadsheet",
		slog.String("title", title),
		slog.Int("tabs", len(tabs)),
	)

	var req createSpreadsheetRequest
	req.Properties.Title = title

	for _, tab := range tabs {
		props := sheetProperties{Title: tab.Title, Hidden: tab.Hidden}
		if tab.FrozenTop {
			props.GridProperties = &gridProperties{FrozenRowCount: 1}
		}

		req.Sheets = append(req.Sheets, sheetEntry{Properties: props})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: encoding create request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.urls.Sheets+"/spreadsheets", contentTypeJSON, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr spreadsheetResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("sheets: decoding create response: %w", err)
	}

	created := sr.toSpreadsheet()

	c.logger.Info("spreadsheet created",
		slog.String("spreadsheet_id", created.ID),
	)

	return &created, nil
}

// batchUpdateRequest mirrors the spreadsheets.batchUpdate request body.
// Only the request kinds this system issues are modeled.
type batchUpdateRequest struct {
	Requests []batchRequest `json:"requests"`
}

type batchRequest struct {
	DeleteDimension       *deleteDimensionRequest       `json:"deleteDimension,omitempty"`
	RepeatCell            *repeatCellRequest            `json:"repeatCell,omitempty"`
	UpdateSheetProperties *updateSheetPropertiesRequest `json:"updateSheetProperties,omitempty"`
}

type deleteDimensionRequest struct {
	Range dimensionRange `json:"range"`
}

type dimensionRange struct {
	SheetID    int64  `json:"sheetId"`
	Dimension  string `json:"dimension"`
	StartIndex int64  `json:"startIndex"`
	EndIndex   int64  `json:"endIndex"`
}

type repeatCellRequest struct {
	Range  gridRange `json:"range"`
	Cell   cellData  `json:"cell"`
	Fields string    `json:"fields"`
}

type gridRange struct {
	SheetID       int64 `json:"sheetId"`
	StartRowIndex int64 `json:"startRowIndex"`
	EndRowIndex   int64 `json:"endRowIndex"`
}

type cellData struct {
	UserEnteredFormat cellFormat `json:"userEnteredFormat"`
}

type cellFormat struct {
	BackgroundColor rgbColor   `json:"backgroundColor"`
	TextFormat      textFormat `json:"textFormat"`
}

type rgbColor struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

type textFormat struct {
	Bold            bool      `json:"bold"`
	ForegroundColor *rgbColor `json:"foregroundColor,omitempty"`
}

type updateSheetPropertiesRequest struct {
	Properties struct {
		SheetID        int64          `json:"sheetId"`
		GridProperties gridProperties `json:"gridProperties"`
	} `json:"properties"`
	Fields string `json:"fields"`
}

// batchUpdate posts a spreadsheets.batchUpdate request.
func (c *Client) batchUpdate(ctx context.Context, spreadsheetID string, req batchUpdateRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("sheets: encoding batch update: %w", err)
	}

	u := fmt.Sprintf("%s/spreadsheets/%s:batchUpdate",
		c.urls.Sheets, url.PathEscape(spreadsheetID))

	resp, err := c.do(ctx, http.MethodPost, u, contentTypeJSON, body)
	if err != nil {
		return err
	}

	resp.Body.Close()

	return nil
}

// DeleteRows structurally removes rows [startRow, endRow) (0-based indices)
// from the given tab. Subsequent rows shift up — this is a dimension
// deletion, not a cell clear.
func (c *Client) DeleteRows(ctx context.Context, spreadsheetID string, tabID, startRow, endRow int64) error {
	c.logger.Debug("deleting rows",
		slog.String("spreadsheet_id", spreadsheetID),
		slog.Int64("tab_id", tabID),
		slog.Int64("start", startRow),
		slog.Int64("end", endRow),
	)

	return c.batchUpdate(ctx, spreadsheetID, batchUpdateRequest{
		Requests: []batchRequest{{
			DeleteDimension: &deleteDimensionRequest{
				Range: dimensionRange{
					SheetID:    tabID,
					Dimension:  "ROWS",
					StartIndex: startRow,
					EndIndex:   endRow,
				},
			},
		}},
	})
}

// FormatHeaderRow applies the standard header styling to row 1 of the given
// tab: bold white text on a blue background, with the top row frozen.
func (c *Client) FormatHeaderRow(ctx context.Context, spreadsheetID string, tabID int64) error {
	repeat := &repeatCellRequest{
		Range: gridRange{SheetID: tabID, StartRowIndex: 0, EndRowIndex: 1},
		Cell: cellData{
			UserEnteredFormat: cellFormat{
				BackgroundColor: rgbColor{Red: 0.2, Green: 0.4, Blue: 0.9},
				TextFormat: textFormat{
					Bold:            true,
					ForegroundColor: &rgbColor{Red: 1, Green: 1, Blue: 1},
				},
			},
		},
		Fields: "userEnteredFormat(backgroundColor,textFormat)",
	}

	freeze := &updateSheetPropertiesRequest{Fields: "gridProperties.frozenRowCount"}
	freeze.Properties.SheetID = tabID
	freeze.Properties.GridProperties = gridProperties{FrozenRowCount: 1}

	return c.batchUpdate(ctx, spreadsheetID, batchUpdateRequest{
		Requests: []batchRequest{
			{RepeatCell: repeat},
			{UpdateSheetProperties: freeze},
		},
	})
}
