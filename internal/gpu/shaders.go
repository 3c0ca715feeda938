package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

// Embedded WGSL shader sources.

//go:embed shaders/composite.wgsl
var compositeShaderSource string

//go:embed shaders/blur.wgsl
var blurShaderSource string

// ShaderSources returns the embedded WGSL sources by name.
func ShaderSources() map[string]string {
	return map[string]string{
		"composite": compositeShaderSource,
		"blur":      blurShaderSource,
	}
}

// ValidateShaders compiles every embedded shader to SPIR-V with naga and
// returns the first failure. Hosts may call it at startup to fail early on
// drivers that would otherwise reject the pipeline lazily.
func ValidateShaders() error {
	for _, name := range []string{"composite", "blur"} {
		src := ShaderSources()[name]
		if src == "" {
			return fmt.Errorf("%w: %s", ErrEmptyShader, name)
		}
		if _, err := naga.Compile(src); err != nil {
			return fmt.Errorf("gpu: compile %s shader: %w", name, err)
		}
	}
	return nil
}
