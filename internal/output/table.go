package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"uptime/internal/score"
	"uptime/internal/service"
)

const dateLayout = "Mon Jan 02 15:04"

// FormatHistory writes session records as a table, oldest first as served.
func FormatHistory(w io.Writer, records []service.HistoryRecord) {
	if len(records) == 0 {
		faint.Fprintln(w, "no sessions recorded")
		return
	}

	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("DATE"), bold.Sprint("SCORE"), bold.Sprint("ENERGY"), bold.Sprint("FOCUS"), bold.Sprint("BREAK"))
	for _, r := range records {
		brk := "-"
		if r.HadBreak {
			brk = "yes"
		}
		tbl.AddRow(
			r.CreatedAt.Local().Format(dateLayout),
			strconv.Itoa(r.UptimeScore)+"%",
			fmt.Sprintf("%d/%d", r.EnergyLevel, score.MaxEnergy),
			FormatMinutes(r.FocusMinutes),
			brk,
		)
	}
	tbl.RightAlign(1)
	fmt.Fprintln(w, tbl)
}

// FormatStats writes the weekly aggregate as a two-column table.
func FormatStats(w io.Writer, s service.WeeklyStats) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("Average uptime:", fmt.Sprintf("%.1f%%", s.AverageUptime))
	tbl.AddRow("Sessions:", strconv.Itoa(s.TotalSessions))
	tbl.AddRow("Focus time:", FormatMinutes(s.TotalFocusMinutes))
	tbl.AddRow("Breaks:", strconv.Itoa(s.BreakCount))
	if s.BestDay != "" {
		tbl.AddRow("Best day:", s.BestDay)
	}
	fmt.Fprintln(w, tbl)
}
