package glsl

import (
	"fmt"
	"strings"
	"testing"
)

func TestFragmentCoversEveryUnit(t *testing.T) {
	const units = 16
	src := FragmentSource(HeaderGL330, units)

	if !strings.Contains(src, fmt.Sprintf("uniform sampler2D uTextures[%d];", units)) {
		t.Error("sampler array not sized to the unit count")
	}
	for i := 0; i < units; i++ {
		probe := fmt.Sprintf("texture(uTextures[%d], vUV)", i)
		if !strings.Contains(src, probe) {
			t.Errorf("unit %d is never sampled", i)
		}
	}
	if strings.Contains(src, fmt.Sprintf("uTextures[%d]", units)) {
		t.Error("fragment samples past the unit count")
	}
}

func TestSourcesAreNulTerminated(t *testing.T) {
	for name, src := range map[string]string{
		"vertex":   VertexSource(HeaderGL330),
		"fragment": FragmentSource(HeaderGLES300, 8),
	} {
		if !strings.HasSuffix(src, "\x00") {
			t.Errorf("%s source is not NUL terminated", name)
		}
	}
}

func TestESHeaderDeclaresPrecision(t *testing.T) {
	src := FragmentSource(HeaderGLES300, 4)
	if !strings.HasPrefix(src, "#version 300 es") {
		t.Errorf("header = %q", src[:20])
	}
	if !strings.Contains(src, "precision mediump float;") {
		t.Error("ES fragment shader lacks a default precision")
	}
}
