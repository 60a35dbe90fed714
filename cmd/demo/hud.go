package main

import (
	"fmt"
	"strings"

	"xeogl/renderer"
)

// DebugOverlay collects status lines shown in the window title.
type DebugOverlay struct {
	lines []string
}

func (do *DebugOverlay) AddLine(format string, args ...any) {
	do.lines = append(do.lines, fmt.Sprintf(format, args...))
}

func (do *DebugOverlay) Clear() {
	do.lines = do.lines[:0]
}

func (do *DebugOverlay) Text() string {
	return strings.Join(do.lines, " | ")
}

// AddStats appends the renderer counters of the last frame.
func (do *DebugOverlay) AddStats(st renderer.Stats, fps float64) {
	do.AddLine("%.0f fps", fps)
	do.AddLine("%d objects, %d programs", st.Objects, st.Programs)
	do.AddLine("%d draws, %d switches, %d uniforms", st.DrawCalls, st.ProgramSwitches, st.UniformPushes)
	if st.Skipped > 0 {
		do.AddLine("%d skipped", st.Skipped)
	}
}
