package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"rostersync/clients"
	"rostersync/core"
	"rostersync/models"
)

var sheetsAPIBase = "https://sheets.googleapis.com/v4"

// SheetsClient implements clients.RosterStorage against the Sheets REST API
type SheetsClient struct {
	httpClient *http.Client
}

func NewSheetsClient(httpClient *http.Client) clients.RosterStorage {
	return &SheetsClient{httpClient: httpClient}
}

type valueRange struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

type batchUpdateRequest struct {
	ValueInputOption string       `json:"valueInputOption"`
	Data             []valueRange `json:"data"`
}

// GetValues reads a range and returns every cell as its formatted string
func (c *SheetsClient) GetValues(ctx context.Context, accessToken, spreadsheetID, a1Range string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s", sheetsAPIBase, url.PathEscape(spreadsheetID), url.PathEscape(a1Range))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create values request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var result valueRange
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("failed to get values for %s: %w", a1Range, err)
	}

	rows := make([][]string, len(result.Values))
	for i, row := range result.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			if s, ok := cell.(string); ok {
				rows[i][j] = s
			} else if cell != nil {
				rows[i][j] = fmt.Sprint(cell)
			}
		}
	}
	return rows, nil
}

// BatchUpdateValues writes every update in one values:batchUpdate call
func (c *SheetsClient) BatchUpdateValues(ctx context.Context, accessToken, spreadsheetID string, updates []models.SheetUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	payload := batchUpdateRequest{ValueInputOption: "USER_ENTERED"}
	for _, update := range updates {
		payload.Data = append(payload.Data, valueRange{
			Range:  update.CellRange,
			Values: [][]any{{update.Value}},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal batch update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values:batchUpdate", sheetsAPIBase, url.PathEscape(spreadsheetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create batch update request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to batch update %d cells: %w", len(updates), err)
	}
	return nil
}

func (c *SheetsClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w: %w", core.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w: %w", core.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sheets api returned status %d: %s: %w", resp.StatusCode, string(body), core.ErrUpstream)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w: %w", core.ErrUpstream, err)
	}
	return nil
}
