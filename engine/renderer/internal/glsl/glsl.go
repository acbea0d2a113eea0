// Package glsl generates the shader sources shared by the GL family
// backends. The programs are identical across desktop GL, GL ES and WebGL2
// up to the version header, so the sources are built from one template.
package glsl

import (
	"fmt"
	"strings"
)

// HeaderGL330 is the desktop core profile header.
const HeaderGL330 = "#version 330 core\n"

// HeaderGLES300 is the header for GL ES 3.0 and WebGL2 contexts. Sampling
// needs an explicit default precision there.
const HeaderGLES300 = "#version 300 es\nprecision mediump float;\n"

// VertexSource returns the instanced sprite vertex shader. Attribute 0 is
// the unit quad corner shared by all instances; attributes 1..6 are the
// per-instance stream.
func VertexSource(header string) string {
	return header + `
layout(location = 0) in vec2 aCorner;
layout(location = 1) in vec2 aPosition;
layout(location = 2) in vec2 aSize;
layout(location = 3) in float aRotation;
layout(location = 4) in vec4 aUVRect;
layout(location = 5) in vec4 aColor;
layout(location = 6) in float aTexUnit;

uniform mat4 uViewProjection;

out vec2 vUV;
out vec4 vColor;
flat out int vTexUnit;

void main() {
	float c = cos(aRotation);
	float s = sin(aRotation);
	vec2 local = aCorner * aSize;
	vec2 world = aPosition + vec2(local.x * c - local.y * s, local.x * s + local.y * c);
	gl_Position = uViewProjection * vec4(world, 0.0, 1.0);
	vUV = aUVRect.xy + (aCorner + vec2(0.5)) * aUVRect.zw;
	vColor = aColor;
	vTexUnit = int(aTexUnit + 0.5);
}
` + "\x00"
}

// FragmentSource returns the fragment shader for a context exposing units
// texture image units. Sampler arrays cannot be indexed by a varying in
// GLSL, so selection is an if chain generated to the unit count.
func FragmentSource(header string, units int) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\nin vec2 vUV;\nin vec4 vColor;\nflat in int vTexUnit;\n\n")
	fmt.Fprintf(&b, "uniform sampler2D uTextures[%d];\n\n", units)
	b.WriteString("out vec4 fragColor;\n\nvoid main() {\n\tvec4 texel = vec4(1.0);\n")
	for i := 0; i < units; i++ {
		if i == 0 {
			fmt.Fprintf(&b, "\tif (vTexUnit == 0) texel = texture(uTextures[0], vUV);\n")
		} else {
			fmt.Fprintf(&b, "\telse if (vTexUnit == %d) texel = texture(uTextures[%d], vUV);\n", i, i)
		}
	}
	b.WriteString("\tfragColor = texel * vColor;\n}\n")
	b.WriteString("\x00")
	return b.String()
}

// InstanceFloats is the per-instance attribute stream length in floats:
// position (2), size (2), rotation (1), uv rect (4), color (4), unit (1).
const InstanceFloats = 14

// InstanceStride is the per-instance stride in bytes.
const InstanceStride = InstanceFloats * 4

// QuadCorners is the unit quad shared by every instance, wound for a
// triangle strip.
var QuadCorners = []float32{
	-0.5, -0.5,
	0.5, -0.5,
	-0.5, 0.5,
	0.5, 0.5,
}
