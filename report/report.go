package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/core"
)

const defaultBarWidth = 40

// ConsoleReporter prints finished jobs as histogram tables on the
// terminal.
type ConsoleReporter struct {
	out      io.Writer
	barWidth int
}

func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:      out,
		barWidth: defaultBarWidth,
	}
}

func (r *ConsoleReporter) Setup(conf *core.Conf) error {
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.barWidth == 0 {
		r.barWidth = defaultBarWidth
	}
	if conf.DisableStdoutLog {
		color.NoColor = true
	}
	return nil
}

func (r *ConsoleReporter) Report(j core.Job) error {
	jd := j.JobData()
	if jd.Result == nil {
		return fmt.Errorf("job(%s) has no result", jd.ID)
	}
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(r.out, "job %s (%s) finished with status %s\n", jd.ID, jd.JobType, jd.Status)
	if jd.Status == core.FAILED {
		color.New(color.FgRed).Fprintf(r.out, "  %s\n", jd.Result.Message)
		return nil
	}
	if len(jd.Result.DividedResult) > 0 {
		r.renderDivided(jd.Result.DividedResult)
	} else {
		r.RenderCounts(jd.Result.Counts)
	}
	if est := jd.Result.Estimation; est != nil {
		fmt.Fprintf(r.out, "estimated phase: %s (weighted %s), top outcome %s at %s\n",
			color.GreenString("%.6f", est.Phase),
			color.GreenString("%.6f", est.WeightedPhase),
			color.YellowString(est.TopBitstring),
			color.YellowString("%.1f%%", est.TopFraction*100))
	}
	fmt.Fprintf(r.out, "execution time: %s\n", jd.Result.ExecutionTime)
	return nil
}

// RenderCounts prints one histogram table, outcomes sorted by bit
// string.
func (r *ConsoleReporter) RenderCounts(counts core.Counts) {
	total := counts.Total()
	if total == 0 {
		fmt.Fprintln(r.out, "no counts")
		return
	}
	maxCount := uint32(0)
	keys := make([]string, 0, len(counts))
	for k, v := range counts {
		keys = append(keys, k)
		if v > maxCount {
			maxCount = v
		}
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Outcome", "Count", "Prob", "Histogram"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})
	for _, k := range keys {
		v := counts[k]
		prob := float64(v) / float64(total)
		table.Append([]string{
			k,
			fmt.Sprintf("%d", v),
			fmt.Sprintf("%.4f", prob),
			r.bar(v, maxCount),
		})
	}
	table.Render()
}

func (r *ConsoleReporter) renderDivided(divided core.DividedResult) {
	indices := make([]int, 0, len(divided))
	for i := range divided {
		indices = append(indices, int(i))
	}
	sort.Ints(indices)
	for _, i := range indices {
		fmt.Fprintf(r.out, "circuit %d:\n", i)
		r.RenderCounts(divided[uint32(i)])
	}
}

func (r *ConsoleReporter) bar(count, maxCount uint32) string {
	if maxCount == 0 {
		return ""
	}
	n := int(float64(r.barWidth) * float64(count) / float64(maxCount))
	if n == 0 && count > 0 {
		n = 1
	}
	return color.BlueString(strings.Repeat("█", n))
}

// LogReporter mirrors finished jobs into the structured log instead
// of the terminal. Used when the engine runs headless.
type LogReporter struct{}

func (r *LogReporter) Setup(conf *core.Conf) error {
	return nil
}

func (r *LogReporter) Report(j core.Job) error {
	jd := j.JobData()
	zap.L().Info(fmt.Sprintf("job(%s) finished with status %s/result:%s",
		jd.ID, jd.Status, jd.Result.ToString()))
	return nil
}
