// Package rankingsheets reads and writes ranking spreadsheets.
package rankingsheets

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the workbooks produced here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeader = []any{"Rank", "Player ID", "Name", "Team", "Position", "Points", "Appearances", "Average Rank"}

// SheetName returns the worksheet name used for a ranking type.
func SheetName(rankingType rankingdomain.RankingType) string {
	return "Top " + rankingType.String()
}

// FileName returns the download name of a consensus export.
func FileName(rankingType rankingdomain.RankingType, date time.Time) string {
	return fmt.Sprintf("consensus-top%d-%s.xlsx", rankingType, rankingdomain.Day(date).Format(time.DateOnly))
}

// WriteConsensus renders a consensus list as a single-sheet workbook.
func WriteConsensus(rankingType rankingdomain.RankingType, entries []rankingdomain.ConsensusEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(rankingType)
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, e := range entries {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{e.Position, e.PlayerID, e.Name, e.Team, e.PlayerPos, e.Points, e.Appearances, e.AverageRank}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseRanking reads a ranking from the first sheet of a workbook.
//
// A header row naming a "player id" column (and optionally a "rank" column) is
// honoured. Without one, column A holds player ids and column B, when
// numeric, holds ranks. Rows without a player id are skipped. When no row
// carries a rank, list order is used.
func ParseRanking(data []byte) ([]rankingdomain.RankedPlayer, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	start, idCol, rankCol := 0, 0, 1
	h, id, rank, hasHeader := findHeader(rows)
	if hasHeader {
		start, idCol, rankCol = h+1, id, rank
	}

	var out []rankingdomain.RankedPlayer
	for i := start; i < len(rows); i++ {
		row := rows[i]
		id := cell(row, idCol)
		if id == "" {
			continue
		}
		entry := rankingdomain.RankedPlayer{PlayerID: id}
		if raw := cell(row, rankCol); raw != "" {
			rank, err := strconv.Atoi(raw)
			switch {
			case err == nil:
				entry.Rank = rank
			case hasHeader:
				return nil, fmt.Errorf("invalid rank %q at line %d", raw, i+1)
			}
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no ranked players found in XLSX")
	}
	return rankingdomain.NormalizeEntries(out), nil
}

// findHeader locates a header row within the first few rows.
func findHeader(rows [][]string) (row, idCol, rankCol int, ok bool) {
	for i := 0; i < len(rows) && i < 5; i++ {
		idCol, rankCol = -1, -1
		for j, v := range rows[i] {
			switch normalizeHeader(v) {
			case "playerid", "player", "id":
				if idCol < 0 {
					idCol = j
				}
			case "rank", "position", "#":
				if rankCol < 0 {
					rankCol = j
				}
			}
		}
		if idCol >= 0 {
			return i, idCol, rankCol, true
		}
	}
	return 0, 0, 1, false
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
