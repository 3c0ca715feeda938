package gpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/naga"
)

func TestShaderSourcesEmbedded(t *testing.T) {
	for name, src := range ShaderSources() {
		if src == "" {
			t.Errorf("%s shader source is empty", name)
		}
	}
	if !strings.Contains(compositeShaderSource, "fn vs_main") ||
		!strings.Contains(compositeShaderSource, "fn fs_main") {
		t.Error("composite shader is missing an entry point")
	}
	if !strings.Contains(blurShaderSource, "array<vec4<f32>, 256>") {
		t.Error("blur kernel array length does not match MaxKernelTaps")
	}
}

func TestShaderCompilation(t *testing.T) {
	for name, src := range ShaderSources() {
		t.Run(name, func(t *testing.T) {
			spirv, err := naga.Compile(src)
			if err != nil {
				msg := err.Error()
				if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
					t.Skipf("Skipping: naga feature not yet implemented: %v", err)
				}
				t.Fatalf("naga.Compile(%s) failed: %v", name, err)
			}
			if len(spirv) == 0 {
				t.Fatal("empty SPIR-V output")
			}
		})
	}
}

func TestValidateShaders(t *testing.T) {
	err := ValidateShaders()
	if err == nil {
		return
	}
	if errors.Is(err, ErrEmptyShader) {
		t.Fatalf("ValidateShaders: %v", err)
	}
	msg := err.Error()
	if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
		t.Skipf("Skipping: naga feature not yet implemented: %v", err)
	}
	t.Fatalf("ValidateShaders: %v", err)
}
