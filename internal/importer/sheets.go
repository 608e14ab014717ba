package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// ValuesGetter reads a range of cell values. It is satisfied by the Sheets API
// adapter below and by fakes in tests.
type ValuesGetter interface {
	Values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

// SheetsSource reads an import table from a Google spreadsheet range such as "Import!A:E".
type SheetsSource struct {
	values        ValuesGetter
	spreadsheetID string
	rng           string
}

func NewSheetsSource(values ValuesGetter, spreadsheetID, rng string) *SheetsSource {
	if strings.TrimSpace(rng) == "" {
		rng = "A:E"
	}
	return &SheetsSource{values: values, spreadsheetID: spreadsheetID, rng: rng}
}

// Table fetches the range; the first row is the header.
func (s *SheetsSource) Table(ctx context.Context) (Table, error) {
	if s.spreadsheetID == "" {
		return Table{}, errors.New("missing spreadsheet id")
	}
	values, err := s.values.Values(ctx, s.spreadsheetID, s.rng)
	if err != nil {
		return Table{}, fmt.Errorf("read range %q: %w", s.rng, err)
	}
	records := make([][]string, len(values))
	for i, row := range values {
		records[i] = toStrings(row)
	}
	return tableFrom(records)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// SheetsAPI adapts the Sheets v4 service to ValuesGetter.
type SheetsAPI struct {
	svc *gsheet.Service
}

func (a *SheetsAPI) Values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// NewSheetsAPI initializes a read-only Sheets client from service account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetsAPI(ctx context.Context) (*SheetsAPI, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		var err error
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsAPI{svc: svc}, nil
}
