package sim

import (
	"fmt"
	"strings"
)

// Report renders a multi-line, human-readable summary of the building.
func (b *Building) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Building\n")
	fmt.Fprintf(&sb, "  Name: %s\n", b.name)
	fmt.Fprintf(&sb, "  Type: %s\n", b.typ)
	fmt.Fprintf(&sb, "  Status: %s\n", b.status)
	fmt.Fprintf(&sb, "  Road Access: %t\n", b.RoadAccess.Value())
	if b.Power.required > 0 {
		fmt.Fprintf(&sb, "  Power (kW): %d/%d\n", b.Power.supplied, b.Power.required)
	}
	if p := b.Plant; p != nil {
		fmt.Fprintf(&sb, "Power\n")
		fmt.Fprintf(&sb, "  Capacity (kW): %d\n", p.capacity)
		fmt.Fprintf(&sb, "  Consumed (kW): %d\n", p.consumed)
		fmt.Fprintf(&sb, "  Available (kW): %d\n", p.Available())
	}
	if style, rot := b.RoadStyle(); style != "" {
		fmt.Fprintf(&sb, "  Style: %s (%d°)\n", style, rot)
	}
	if d := b.Development; d != nil {
		fmt.Fprintf(&sb, "Development\n")
		fmt.Fprintf(&sb, "  State: %s\n", d.cur.State)
		fmt.Fprintf(&sb, "  Level: %d/%d\n", d.cur.Level, d.cfg.MaxLevel)
		fmt.Fprintf(&sb, "  Abandonment Counter: %d\n", d.cur.AbandonmentCounter)
		fmt.Fprintf(&sb, "  Construction Counter: %d\n", d.cur.ConstructionCounter)
	}
	if j := b.Jobs; j != nil {
		fmt.Fprintf(&sb, "Workers (%d/%d)\n", j.FilledJobs(), j.MaxWorkers())
		for _, w := range j.workers {
			fmt.Fprintf(&sb, "  - %s\n", w.Report())
		}
	}
	if r := b.Residents; r != nil {
		fmt.Fprintf(&sb, "Residents (%d/%d)\n", r.Count(), r.Maximum())
		for _, cz := range r.residents {
			fmt.Fprintf(&sb, "  - %s\n", cz.Report())
		}
	}
	return sb.String()
}
