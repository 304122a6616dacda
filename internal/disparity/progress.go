package disparity

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	durationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
)

// waitWithSpinner calls wait and animates a spinner on stdout until it
// returns. With quiet set it only calls wait.
func waitWithSpinner(quiet bool, label string, wait func() error) error {
	if quiet {
		return wait()
	}

	var spinnerWg sync.WaitGroup
	spinnerWg.Add(1)
	done := make(chan struct{})
	startTime := time.Now()

	go func() {
		defer spinnerWg.Done()
		s := spinner.New()
		s.Spinner = spinner.Dot
		s.Style = spinnerStyle
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s, _ = s.Update(spinner.TickMsg{})
				fmt.Printf("\r%s %s... (%.1fs)", s.View(), label, time.Since(startTime).Seconds())
			}
		}
	}()

	err := wait()
	close(done)
	spinnerWg.Wait()

	mark := "✓"
	if err != nil {
		mark = "✗"
	}
	fmt.Printf("\r%s %s finished in %s.\n", mark, label, durationStyle.Render(fmt.Sprintf("%.4fs", time.Since(startTime).Seconds())))
	return err
}

// printReport shows the run summary on stdout.
func printReport(res *Result) {
	fmt.Printf("%s %s\n", labelStyle.Render("Disparity map:"), res.Size)
	fmt.Printf("%s %s\n", labelStyle.Render("Saved to:"), res.OutputPath)
	st := res.Stats
	fmt.Printf("%s %s of %d pixels\n", labelStyle.Render("Valid:"),
		valueStyle.Render(fmt.Sprintf("%.1f%%", 100*st.ValidRatio())), st.Pixels)
	if st.Valid > 0 {
		fmt.Printf("%s min %s  max %s  mean %s  median %s  stddev %s px\n", labelStyle.Render("Disparity:"),
			valueStyle.Render(fmt.Sprintf("%.2f", st.Min)),
			valueStyle.Render(fmt.Sprintf("%.2f", st.Max)),
			valueStyle.Render(fmt.Sprintf("%.2f", st.Mean)),
			valueStyle.Render(fmt.Sprintf("%.2f", st.Median)),
			valueStyle.Render(fmt.Sprintf("%.2f", st.StdDev)))
	}
	fmt.Printf("%s %s\n", labelStyle.Render("Total processing time:"),
		durationStyle.Render(fmt.Sprintf("%.4fs", res.Elapsed.Seconds())))
}
