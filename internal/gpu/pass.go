package gpu

import "fmt"

// PassKind identifies a render pass in a frame plan.
type PassKind uint8

const (
	// PassBlurHorizontal blurs a source texture along x into the scratch
	// target, compositing over the instance's blur seed.
	PassBlurHorizontal PassKind = iota
	// PassBlurVertical blurs the scratch target along y into the
	// instance's blurred target and applies its opacity.
	PassBlurVertical
	// PassComposite draws every instance into the surface.
	PassComposite
)

// String implements fmt.Stringer.
func (k PassKind) String() string {
	switch k {
	case PassBlurHorizontal:
		return "blur-h"
	case PassBlurVertical:
		return "blur-v"
	case PassComposite:
		return "composite"
	default:
		return fmt.Sprintf("PassKind(%d)", uint8(k))
	}
}

// TargetKind identifies a texture a pass reads or writes.
type TargetKind uint8

const (
	// TargetSource is the instance's own texture.
	TargetSource TargetKind = iota
	// TargetScratch is the shared horizontal-pass output.
	TargetScratch
	// TargetBlurred is a per-instance vertical-pass output.
	TargetBlurred
	// TargetSurface is the caller's view.
	TargetSurface
)

// Attachment names a texture in a plan. Index is the instance for
// TargetSource and the blurred target slot for TargetBlurred.
type Attachment struct {
	Kind  TargetKind
	Index int
}

// String implements fmt.Stringer.
func (t Attachment) String() string {
	switch t.Kind {
	case TargetSource:
		return fmt.Sprintf("source[%d]", t.Index)
	case TargetScratch:
		return "scratch"
	case TargetBlurred:
		return fmt.Sprintf("blurred[%d]", t.Index)
	default:
		return "surface"
	}
}

// Pass is one step of a frame plan.
type Pass struct {
	Kind PassKind
	// Instance is the instance a blur pass works for; -1 for the
	// composite pass.
	Instance int
	// Strength is the blur strength of a blur pass.
	Strength int
	Source   Attachment
	Dest     Attachment
}

// Plan returns the ordered passes for instances: a horizontal and a
// vertical blur pass for each instance with Blur > 0, in instance order,
// then one composite pass. Instances with Blur <= 0 issue no blur passes.
func Plan(instances []Instance) []Pass {
	passes := make([]Pass, 0, 1+2*len(instances))
	blurred := 0
	for i := range instances {
		s := ClampStrength(int(instances[i].Blur))
		if s == 0 {
			continue
		}
		passes = append(passes,
			Pass{
				Kind:     PassBlurHorizontal,
				Instance: i,
				Strength: s,
				Source:   Attachment{Kind: TargetSource, Index: i},
				Dest:     Attachment{Kind: TargetScratch},
			},
			Pass{
				Kind:     PassBlurVertical,
				Instance: i,
				Strength: s,
				Source:   Attachment{Kind: TargetScratch},
				Dest:     Attachment{Kind: TargetBlurred, Index: blurred},
			},
		)
		blurred++
	}
	return append(passes, Pass{
		Kind:     PassComposite,
		Instance: -1,
		Source:   Attachment{Kind: TargetSource, Index: -1},
		Dest:     Attachment{Kind: TargetSurface},
	})
}

// blurredCount returns how many blurred targets plan writes.
func blurredCount(plan []Pass) int {
	n := 0
	for _, p := range plan {
		if p.Kind == PassBlurVertical {
			n++
		}
	}
	return n
}
