package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/semenovpa/csv_importer/internal/domain"
)

// Importer drives parsing, validation and persistence for one CSV stream at a
// time. Row-level failures are recorded in the report and never abort the
// stream; only an unreadable stream or a store failure is fatal. Rows are
// processed strictly in file order, which keeps rejection numbering
// deterministic.
type Importer struct {
	log   *slog.Logger
	saver RecordSaver
}

func NewImporter(log *slog.Logger, saver RecordSaver) *Importer {
	return &Importer{
		log:   log,
		saver: saver,
	}
}

// Import processes a whole CSV stream and reports per-row outcomes. The
// source label is echoed in the report and logs; it carries no semantics.
func (i *Importer) Import(ctx context.Context, r io.Reader, source string) (*domain.ImportReport, error) {
	rows, err := NewRowReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv stream: %w", err)
	}

	log := i.log.With(slog.String("source", source))

	log.DebugContext(ctx, "import started")

	report := &domain.ImportReport{Source: source}

	for {
		raw, n, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, domain.ErrMalformedRow) {
			report.TotalRows++
			report.RejectRow(n, domain.ReasonMalformedRow)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		report.TotalRows++

		record, reason := ValidateRow(raw)
		if reason != "" {
			report.RejectRow(n, reason)
			continue
		}

		err = i.saver.SaveRecord(ctx, record)
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			report.RejectRow(n, domain.ReasonDuplicateEmail)
		case err != nil:
			return nil, fmt.Errorf("failed to save row %d: %w", n, err)
		default:
			report.Inserted++
		}
	}

	log.InfoContext(ctx, "import finished",
		slog.Int("total_rows", report.TotalRows),
		slog.Int("inserted", report.Inserted),
		slog.Int("duplicate_email", report.DuplicateEmail),
		slog.Int("invalid", report.Invalid),
	)

	return report, nil
}
