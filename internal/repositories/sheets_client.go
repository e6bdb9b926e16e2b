package repositories

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
	"github.com/tiv91/intimshopbot/pkg/metrics"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// SpreadsheetInterface is the slice of the Sheets API the adapters need.
type SpreadsheetInterface interface {
	SheetTitles(ctx context.Context) ([]string, error)
	Rows(ctx context.Context, sheet string) ([][]interface{}, error)
	AppendRow(ctx context.Context, sheet string, row []interface{}) error
}

type SheetsClientConfig struct {
	SpreadsheetID string
	// SpreadsheetName is resolved through Drive when SpreadsheetID is empty.
	SpreadsheetName   string
	RequestsPerMinute int
	Burst             int
	Timeout           time.Duration
}

// SheetsClient talks to one spreadsheet. Calls are rate limited to stay
// inside the API quota and never cached.
type SheetsClient struct {
	service       *sheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
	timeout       time.Duration
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	logger        *logger.Logger
}

// NewSheetsClient builds the API client. opts carry credentials in
// production and an httptest endpoint in tests.
func NewSheetsClient(ctx context.Context, cfg SheetsClientConfig, m *metrics.Metrics, log *logger.Logger, opts ...option.ClientOption) (*SheetsClient, error) {
	log = log.WithComponent("sheets_client")

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		log.Error("Failed to create Sheets service", "error", err)
		return nil, fmt.Errorf("%w: sheets service: %v", models.ErrStoreUnavailable, err)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &SheetsClient{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		limiter:       rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		timeout:       timeout,
		metrics:       m,
		tracer:        otel.Tracer("storebot/repositories"),
		logger:        log,
	}

	if c.spreadsheetID == "" {
		id, err := c.resolveByName(ctx, cfg.SpreadsheetName, opts...)
		if err != nil {
			return nil, err
		}
		c.spreadsheetID = id
	}

	log.Debug("Sheets client ready", "requests_per_minute", rpm, "burst", burst)
	return c, nil
}

// SpreadsheetID returns the resolved spreadsheet id.
func (c *SheetsClient) SpreadsheetID() string {
	return c.spreadsheetID
}

func (c *SheetsClient) resolveByName(ctx context.Context, name string, opts ...option.ClientOption) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: neither spreadsheet id nor name configured", models.ErrStoreUnavailable)
	}

	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: drive service: %v", models.ErrStoreUnavailable, err)
	}

	var id string
	err = c.call(ctx, "resolve_spreadsheet", "", func(ctx context.Context) error {
		q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
			strings.ReplaceAll(name, "'", `\'`), spreadsheetMimeType)
		list, err := driveService.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(list.Files) == 0 {
			return fmt.Errorf("%w: spreadsheet %q not shared with the service account", models.ErrStoreUnavailable, name)
		}
		id = list.Files[0].Id
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to resolve spreadsheet by name", "name", name, "error", err)
		return "", err
	}
	c.logger.Info("Resolved spreadsheet by name", "name", name, "spreadsheet_id", id)
	return id, nil
}

// SheetTitles lists tab titles in spreadsheet order.
func (c *SheetsClient) SheetTitles(ctx context.Context) ([]string, error) {
	var titles []string
	err := c.call(ctx, "list_sheets", "", func(ctx context.Context) error {
		resp, err := c.service.Spreadsheets.Get(c.spreadsheetID).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		titles = make([]string, 0, len(resp.Sheets))
		for _, s := range resp.Sheets {
			if s.Properties != nil {
				titles = append(titles, s.Properties.Title)
			}
		}
		return nil
	})
	return titles, err
}

// Rows returns every populated row of a sheet, header included.
func (c *SheetsClient) Rows(ctx context.Context, sheet string) ([][]interface{}, error) {
	var rows [][]interface{}
	err := c.call(ctx, "read_rows", sheet, func(ctx context.Context) error {
		resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, quoteSheet(sheet)).
			ValueRenderOption("FORMATTED_VALUE").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		rows = resp.Values
		return nil
	})
	return rows, err
}

// AppendRow adds one row after the last populated row of a sheet. Cells are
// stored as given: customer text is never parsed as a number or formula.
func (c *SheetsClient) AppendRow(ctx context.Context, sheet string, row []interface{}) error {
	return c.call(ctx, "append_row", sheet, func(ctx context.Context) error {
		_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, quoteSheet(sheet), &sheets.ValueRange{
			Values: [][]interface{}{row},
		}).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
}

func (c *SheetsClient) call(ctx context.Context, operation, sheet string, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "sheets."+operation, trace.WithAttributes(
		attribute.String("sheets.spreadsheet_id", c.spreadsheetID),
		attribute.String("sheets.sheet", sheet),
	))
	defer span.End()

	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		err = fmt.Errorf("%w: rate limiter: %v", models.ErrStoreUnavailable, err)
		c.finish(span, operation, start, err)
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := classify(fn(callCtx))
	c.finish(span, operation, start, err)
	if err != nil {
		c.logger.Warn("Sheets call failed", "operation", operation, "sheet", sheet, "error", err)
	}
	return err
}

func (c *SheetsClient) finish(span trace.Span, operation string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.ObserveStore(operation, start, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// classify maps API errors onto the store error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrStoreUnavailable) || errors.Is(err, models.ErrCategoryNotFound) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range") {
			return fmt.Errorf("%w: %s", models.ErrCategoryNotFound, apiErr.Message)
		}
		return fmt.Errorf("%w: sheets api %d: %s", models.ErrStoreUnavailable, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
}

// quoteSheet turns a tab title into an A1 range covering the whole sheet.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
