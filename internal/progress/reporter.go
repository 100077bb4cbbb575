package progress

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Slynchy/webp-conv/internal/domain"
)

// Reporter forwards batch callbacks into a running bubbletea program. It
// satisfies batch.Observer.
type Reporter struct {
	program *tea.Program
}

// NewReporter creates a reporter bound to the given program.
func NewReporter(p *tea.Program) *Reporter {
	return &Reporter{program: p}
}

func (r *Reporter) OnBatchStart(total int) {
	r.program.Send(StartMsg{Total: total})
}

func (r *Reporter) OnItemDone(done, total int, o domain.Outcome) {
	r.program.Send(ItemDoneMsg{Done: done, Total: total, Outcome: o})
}

func (r *Reporter) OnBatchDone(report *domain.BatchReport) {
	r.program.Send(DoneMsg{Report: report})
}
