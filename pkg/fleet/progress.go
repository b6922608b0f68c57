package fleet

import (
	"fmt"
	"io"
	"os"

	"github.com/poolherd/poolherd/pkg/cli"
)

// consoleReporter is an append-only terminal reporter. It never uses ANSI
// cursor rewriting, so output is safe for pipes, CI, and scrollback buffers.
type consoleReporter struct {
	W io.Writer
}

// NewConsoleReporter creates a Reporter writing to stdout.
func NewConsoleReporter() Reporter {
	return &consoleReporter{W: os.Stdout}
}

// NewConsoleReporterTo creates a Reporter writing to w.
func NewConsoleReporterTo(w io.Writer) Reporter {
	return &consoleReporter{W: w}
}

func (p *consoleReporter) RunStart(total, workers, sshPort int) {
	fmt.Fprintf(p.W, "Starting: %d hosts, workers=%d, ssh-port=%d\n", total, workers, sshPort)
}

func (p *consoleReporter) HostDone(r HostResult, completed, total int) {
	status := cli.Green("OK")
	if !r.Success {
		status = cli.Red("FAIL")
	}
	detail := r.Detail()
	if detail == "" {
		fmt.Fprintf(p.W, "[%d/%d] %s %s\n", completed, total, r.Host, status)
		return
	}
	fmt.Fprintf(p.W, "[%d/%d] %s %s - %s\n", completed, total, r.Host, status, detail)
}

func (p *consoleReporter) RunEnd(s RunSummary) {
	fmt.Fprintf(p.W, "\n=== Summary ===\n")
	fmt.Fprintf(p.W, "Total hosts : %d\n", s.Total)
	fmt.Fprintf(p.W, "Successes   : %d\n", s.Succeeded)
	fmt.Fprintf(p.W, "Failures    : %d\n", s.Failed)
	fmt.Fprintf(p.W, "Elapsed     : %.2fs\n", s.Elapsed.Seconds())

	if len(s.FailedHosts) == 0 {
		return
	}
	fmt.Fprintf(p.W, "\nFailed hosts details:\n")
	for _, r := range s.FailedHosts {
		fmt.Fprintf(p.W, " - %s: %s\n", r.Host, cli.Dim(r.Detail()))
	}
}
