package demo

import (
	"fmt"
	"strings"
	"time"

	"pbr-engine/ibl"
	"pbr-engine/internal/opengl"
)

// Panel collects debug lines for display.
type Panel struct {
	lines []string
}

func (p *Panel) AddLine(format string, args ...any) {
	p.lines = append(p.lines, fmt.Sprintf(format, args...))
}

func (p *Panel) Clear() {
	p.lines = p.lines[:0]
}

// Text joins every line with newlines.
func (p *Panel) Text() string {
	if len(p.lines) == 0 {
		return ""
	}
	return strings.Join(p.lines, "\n") + "\n"
}

// Title is the first line, suitable for a window title.
func (p *Panel) Title() string {
	if len(p.lines) == 0 {
		return ""
	}
	return p.lines[0]
}

// Stats is a frame's worth of displayable state.
type Stats struct {
	FPS      float64
	Camera   *Camera
	Controls *Controls
	Lights   []opengl.PointLight
	State    ibl.State
	Err      error
	Timings  []ibl.PassTiming
}

// Fill rebuilds the panel from s.
func (p *Panel) Fill(s Stats) {
	p.Clear()

	bake := s.State.String()
	if s.Err != nil {
		bake = "failed: " + s.Err.Error()
	}
	p.AddLine("PBR + IBL | %.0f fps | bake: %s", s.FPS, bake)

	if c := s.Camera; c != nil {
		p.AddLine("camera (%.2f, %.2f, %.2f) yaw %.1f pitch %.1f fov %.0f",
			c.Position[0], c.Position[1], c.Position[2], c.Yaw, c.Pitch, c.FOV)
	}
	for i, l := range s.Lights {
		p.AddLine("light[%d] pos (%.1f, %.1f, %.1f) radiance (%.0f, %.0f, %.0f) att (%.2g, %.2g, %.2g)",
			i, l.Position[0], l.Position[1], l.Position[2], l.Color[0], l.Color[1], l.Color[2],
			l.Attenuation[0], l.Attenuation[1], l.Attenuation[2])
	}
	if c := s.Controls; c != nil {
		if c.MultiSphere {
			p.AddLine("scene: %dx%d grid, margin %.1f, z %.1f", c.Grid.Count, c.Grid.Count, c.Grid.Margin, c.Grid.OffsetZ)
		} else {
			p.AddLine("scene: single sphere, metallic %.2f roughness %.2f", c.Metallic, c.Roughness)
		}
		p.AddLine("textured %t normal map %t skybox %s bloom %t exposure %.2f",
			c.Textured, c.HasNormal, c.SkySource, c.Bloom, c.Exposure)
	}
	var total time.Duration
	for _, t := range s.Timings {
		p.AddLine("  %-18s %v", t.Pass, t.Duration.Round(time.Microsecond))
		total += t.Duration
	}
	if len(s.Timings) > 0 {
		p.AddLine("  %-18s %v", "total", total.Round(time.Microsecond))
	}
}
