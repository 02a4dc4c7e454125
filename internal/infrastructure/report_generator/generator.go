// Package report_generator renders imported records as tabular PDF documents.
package report_generator

import (
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/semenovpa/csv_importer/internal/domain"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

// GenerateRecordsPDF renders the records as one PDF table, in the order they
// are given.
func (g *Generator) GenerateRecordsPDF(records []*domain.Record) ([]byte, error) {
	m := maroto.New(config.NewBuilder().
		WithLeftMargin(10).
		WithTopMargin(15).
		WithRightMargin(10).
		Build())

	m.AddRows(text.NewRow(10, "Imported records", props.Text{
		Size:  14,
		Style: fontstyle.Bold,
		Align: align.Center,
	}))

	m.AddRow(8,
		text.NewCol(1, "ID", headerText()),
		text.NewCol(4, "Name", headerText()),
		text.NewCol(5, "Email", headerText()),
		text.NewCol(2, "Age", headerText()),
	)

	for _, record := range records {
		m.AddRow(6,
			text.NewCol(1, strconv.FormatInt(record.ID, 10), cellText()),
			text.NewCol(4, record.Name, cellText()),
			text.NewCol(5, record.Email, cellText()),
			text.NewCol(2, strconv.Itoa(record.Age), cellText()),
		)
	}

	document, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pdf: %w", err)
	}

	return document.GetBytes(), nil
}

func headerText() props.Text {
	return props.Text{
		Size:  10,
		Style: fontstyle.Bold,
	}
}

func cellText() props.Text {
	return props.Text{
		Size: 9,
	}
}
