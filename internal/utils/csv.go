package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"paperTrader/internal/domain"
)

// WriteClosedPositionsToCSV exports a trade history snapshot for spreadsheet
// analysis. Timestamps are RFC3339; floats keep full precision.
func WriteClosedPositionsToCSV(positions []*domain.Position, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"asset_address", "symbol", "name", "entry_time", "exit_time", "entry_price", "exit_price", "total_bought", "invested", "realized_pnl", "roi_pct", "scale_outs"})

	for _, p := range positions {
		exitTime := ""
		if !p.ExitTime.IsZero() {
			exitTime = p.ExitTime.Format(time.RFC3339)
		}
		writer.Write([]string{
			p.AssetAddress,
			p.AssetSymbol,
			p.AssetName,
			p.EntryTime.Format(time.RFC3339),
			exitTime,
			strconv.FormatFloat(p.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(p.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(p.TotalBought, 'f', -1, 64),
			strconv.FormatFloat(p.InitialInvestment, 'f', -1, 64),
			strconv.FormatFloat(p.RealizedPnL, 'f', -1, 64),
			strconv.FormatFloat(p.ROI, 'f', -1, 64),
			strconv.Itoa(len(p.ScaleOutHistory)),
		})
	}
	return writer.Error()
}
