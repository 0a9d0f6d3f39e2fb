package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/horserace/internal/history"
	"github.com/lox/horserace/internal/statistics"
)

var (
	reportTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	reportHeadStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	reportCellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

type horseRow struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Starts      int     `json:"starts"`
	Wins        int     `json:"wins"`
	Podiums     int     `json:"podiums"`
	WinRate     float64 `json:"win_rate"`
	AverageRank float64 `json:"average_rank"`
	MeanTime    float64 `json:"mean_time_ms"`
}

type bucketRow struct {
	Conditions string  `json:"conditions"`
	Starts     int     `json:"starts"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"win_rate"`
}

type timeRow struct {
	Distance int     `json:"distance"`
	Races    int     `json:"races"`
	Best     float64 `json:"best_ms"`
	Median   float64 `json:"median_ms"`
	P90      float64 `json:"p90_ms"`
	StdDev   float64 `json:"stddev_ms"`
}

// report is the summary printed by simulate
type report struct {
	Seed         int64       `json:"seed"`
	Tournaments  int         `json:"tournaments"`
	Races        int         `json:"races"`
	Horses       []horseRow  `json:"horses"`
	Buckets      []bucketRow `json:"condition_buckets"`
	WinningTimes []timeRow   `json:"winning_times"`
}

func buildReport(tally *statistics.Tally, seed int64) report {
	r := report{
		Seed:        seed,
		Tournaments: tally.Tournaments,
		Races:       tally.Races,
	}

	for _, h := range tally.Horses() {
		r.Horses = append(r.Horses, horseRow{
			ID:          h.ID,
			Name:        h.Name,
			Starts:      h.Starts,
			Wins:        h.Wins,
			Podiums:     h.Podiums,
			WinRate:     h.WinRate(),
			AverageRank: h.AverageRank(),
			MeanTime:    h.Times.Mean(),
		})
	}

	width := 100 / statistics.ConditionBuckets
	for i, b := range tally.Buckets() {
		r.Buckets = append(r.Buckets, bucketRow{
			Conditions: fmt.Sprintf("%d-%d", i*width+1, (i+1)*width),
			Starts:     b.Starts,
			Wins:       b.Wins,
			WinRate:    b.WinRate(),
		})
	}

	for _, d := range tally.Distances() {
		times := tally.WinningTimes(d)
		r.WinningTimes = append(r.WinningTimes, timeRow{
			Distance: d,
			Races:    times.Count,
			Best:     times.Percentile(0),
			Median:   times.Median(),
			P90:      times.Percentile(0.9),
			StdDev:   times.StdDev(),
		})
	}
	return r
}

func (r report) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r report) render(w io.Writer) {
	fmt.Fprintln(w, reportTitleStyle.Render(fmt.Sprintf("%d tournaments, %d races (seed %d)", r.Tournaments, r.Races, r.Seed)))
	fmt.Fprintln(w)

	horses := make([][]string, 0, len(r.Horses))
	for _, h := range r.Horses {
		horses = append(horses, []string{
			h.Name,
			strconv.Itoa(h.Starts),
			strconv.Itoa(h.Wins),
			strconv.Itoa(h.Podiums),
			percent(h.WinRate),
			fmt.Sprintf("%.2f", h.AverageRank),
			history.FormatTime(h.MeanTime),
		})
	}
	fmt.Fprintln(w, newTable("Horse", "Starts", "Wins", "Podiums", "Win %", "Avg rank", "Mean time").Rows(horses...))
	fmt.Fprintln(w)

	buckets := make([][]string, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		buckets = append(buckets, []string{b.Conditions, strconv.Itoa(b.Starts), strconv.Itoa(b.Wins), percent(b.WinRate)})
	}
	fmt.Fprintln(w, newTable("Condition", "Starts", "Wins", "Win %").Rows(buckets...))
	fmt.Fprintln(w)

	times := make([][]string, 0, len(r.WinningTimes))
	for _, t := range r.WinningTimes {
		times = append(times, []string{
			fmt.Sprintf("%dm", t.Distance),
			strconv.Itoa(t.Races),
			history.FormatTime(t.Best),
			history.FormatTime(t.Median),
			history.FormatTime(t.P90),
			history.FormatTime(t.StdDev),
		})
	}
	fmt.Fprintln(w, newTable("Distance", "Races", "Best", "Median", "P90", "Std dev").Rows(times...))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return reportHeadStyle
			}
			return reportCellStyle
		})
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
