package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestClearValue(t *testing.T) {
	value := clearValue(mgl32.Vec4{0.1, 0.2, 0.3, 1})
	got, ok := value.(core1_0.ClearValueFloat)
	if !ok {
		t.Fatalf("clear value is %T, want ClearValueFloat", value)
	}
	if got != (core1_0.ClearValueFloat{0.1, 0.2, 0.3, 1}) {
		t.Errorf("clearValue() = %v", got)
	}
}
