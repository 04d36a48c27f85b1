package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }
func (r recorder) Update(time.Duration) {
	*r.log = append(*r.log, r.name)
}

func TestRunner_PhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"writeback", PhaseWriteBack, &log})
	r.Register(recorder{"scripts", PhaseScripting, &log})
	r.Register(recorder{"scripts-2", PhaseScripting, &log})
	r.Register(recorder{"events", PhasePreUpdate, &log})

	r.Tick(16 * time.Millisecond)
	require.Equal(t, []string{"events", "scripts", "scripts-2", "writeback", "cleanup"}, log)
	require.EqualValues(t, 1, r.Frames())

	log = log[:0]
	r.TickPhase(PhaseScripting, 0)
	require.Equal(t, []string{"scripts", "scripts-2"}, log)
	require.EqualValues(t, 1, r.Frames())
}
