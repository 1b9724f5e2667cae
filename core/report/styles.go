package report

import "github.com/charmbracelet/lipgloss"

// ANSI 256 palette
const (
	ColorRed    = "196"
	ColorGreen  = "46"
	ColorYellow = "220"
	ColorAmber  = "178"
	ColorWhite  = "255"
	ColorGray   = "245"
	ColorBlue   = "39"
)

// Tag names printed in square brackets before each line.
const (
	TagFail  = "FAIL"
	TagSucc  = "SUCC"
	TagWarn  = "WARN"
	TagChce  = "CHCE"
	TagInfo  = "INFO"
	TagFovr  = "FOVR"
	TagPhase = ">>>>"
)

// Styles holds the styles used by the console report.
type Styles struct {
	Fail  lipgloss.Style
	Succ  lipgloss.Style
	Warn  lipgloss.Style
	Chce  lipgloss.Style
	Info  lipgloss.Style
	Fovr  lipgloss.Style
	Phase lipgloss.Style
	Path  lipgloss.Style
	Value lipgloss.Style
	Label lipgloss.Style
}

// DefaultStyles returns the colored styles for terminals.
func DefaultStyles() Styles {
	return Styles{
		Fail:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorRed)),
		Succ:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorGreen)),
		Warn:  lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color(ColorYellow)),
		Chce:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAmber)),
		Info:  lipgloss.NewStyle(),
		Fovr:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Phase: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorBlue)),
		Path:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorBlue)),
		Value: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Label: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
	}
}

// NoColorStyles returns unstyled components for pipes and files.
func NoColorStyles() Styles {
	return Styles{
		Fail:  lipgloss.NewStyle(),
		Succ:  lipgloss.NewStyle(),
		Warn:  lipgloss.NewStyle(),
		Chce:  lipgloss.NewStyle(),
		Info:  lipgloss.NewStyle(),
		Fovr:  lipgloss.NewStyle(),
		Phase: lipgloss.NewStyle(),
		Path:  lipgloss.NewStyle(),
		Value: lipgloss.NewStyle(),
		Label: lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

func (s Styles) tag(name string) string {
	var st lipgloss.Style
	switch name {
	case TagFail:
		st = s.Fail
	case TagSucc:
		st = s.Succ
	case TagWarn:
		st = s.Warn
	case TagChce:
		st = s.Chce
	case TagFovr:
		st = s.Fovr
	case TagPhase:
		st = s.Phase
	default:
		st = s.Info
	}
	return "[" + st.Render(name) + "]"
}
