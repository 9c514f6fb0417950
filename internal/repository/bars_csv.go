package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"QuantLab/internal/domain/models"
	"QuantLab/pkg/util"
)

// ReadBarsCSV parses symbol,date,close rows. A first row whose close column
// is not a number is treated as a header.
func ReadBarsCSV(r io.Reader) ([]models.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var bars []models.PriceBar
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return bars, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		c, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: close %q: %w", line, rec[2], err)
		}
		d, ok := util.ParseDate(strings.TrimSpace(rec[1]))
		if !ok {
			return nil, fmt.Errorf("line %d: date %q", line, rec[1])
		}
		bars = append(bars, models.PriceBar{
			Symbol: util.NormalizeSymbol(rec[0]),
			Date:   d,
			Close:  c,
		})
	}
}
