package shader

import (
	"strconv"

	"xeogl/gpu"
	"xeogl/state"
)

// Variant selects one of the programs generated per feature set.
type Variant int

const (
	Draw Variant = iota
	PickObject
	PickPrimitive
	NumVariants
)

func (v Variant) String() string {
	switch v {
	case Draw:
		return "draw"
	case PickObject:
		return "pickObject"
	case PickPrimitive:
		return "pickPrimitive"
	}
	return "unknown"
}

// Pair is the source of one program.
type Pair struct {
	Vertex   string
	Fragment string
}

// Sources holds every variant's source, indexed by Variant.
type Sources [NumVariants]Pair

// Build generates all variants for f.
func Build(f Features) Sources {
	var s Sources
	s[Draw] = Pair{buildDrawVertex(&f), buildDrawFragment(&f)}
	s[PickObject] = Pair{buildPickVertex(&f, PickObject), buildPickFragment(&f, PickObject)}
	s[PickPrimitive] = Pair{buildPickVertex(&f, PickPrimitive), buildPickFragment(&f, PickPrimitive)}
	return s
}

const octDecodeFunc = `
vec3 octDecode(vec2 oct) {
    vec3 v = vec3(oct.xy, 1.0 - abs(oct.x) - abs(oct.y));
    if (v.z < 0.0) {
        v.xy = (1.0 - abs(v.yx)) * vec2(v.x >= 0.0 ? 1.0 : -1.0, v.y >= 0.0 ? 1.0 : -1.0);
    }
    return normalize(v);
}`

const billboardSpherical = `
void billboard(inout mat4 mat) {
    mat[0][0] = 1.0;
    mat[0][1] = 0.0;
    mat[0][2] = 0.0;
    mat[1][0] = 0.0;
    mat[1][1] = 1.0;
    mat[1][2] = 0.0;
    mat[2][0] = 0.0;
    mat[2][1] = 0.0;
    mat[2][2] = 1.0;
}`

const billboardCylindrical = `
void billboard(inout mat4 mat) {
    mat[0][0] = 1.0;
    mat[0][1] = 0.0;
    mat[0][2] = 0.0;
    mat[2][0] = 0.0;
    mat[2][1] = 0.0;
    mat[2][2] = 1.0;
}`

const perturbNormalFunc = `
vec3 perturbNormal2Arb(vec3 eyePos, vec3 surfNorm, vec3 texel, vec2 uv) {
    vec3 q0 = dFdx(eyePos.xyz);
    vec3 q1 = dFdy(eyePos.xyz);
    vec2 st0 = dFdx(uv.st);
    vec2 st1 = dFdy(uv.st);
    vec3 S = normalize(q0 * st1.t - q1 * st0.t);
    vec3 T = normalize(-q0 * st1.s + q1 * st0.s);
    vec3 N = normalize(surfNorm);
    vec3 mapN = texel * 2.0 - 1.0;
    mat3 tsn = mat3(S, T, N);
    return normalize(tsn * mapN);
}`

// emitPosition declares the position inputs and transforms and leaves
// worldPosition and viewPosition in scope.
func emitPosition(u *unit, f *Features) {
	u.attribute("vec3", "position")
	u.uniform("mat4", "modelMatrix")
	u.uniform("mat4", "viewMatrix")
	u.uniform("mat4", "projMatrix")
	if f.Quantized {
		u.uniform("mat4", "positionsDecodeMatrix")
		u.line("vec4 localPosition = positionsDecodeMatrix * vec4(position, 1.0);")
	} else {
		u.line("vec4 localPosition = vec4(position, 1.0);")
	}
	u.line("vec4 worldPosition = modelMatrix * localPosition;")
	switch f.Billboard {
	case state.BillboardSpherical, state.BillboardCylindrical:
		if f.Billboard == state.BillboardSpherical {
			u.fn(billboardSpherical)
		} else {
			u.fn(billboardCylindrical)
		}
		u.line("mat4 modelViewMatrix = viewMatrix * modelMatrix;")
		u.line("billboard(modelViewMatrix);")
		u.line("vec4 viewPosition = modelViewMatrix * localPosition;")
	default:
		u.line("vec4 viewPosition = viewMatrix * worldPosition;")
	}
	if f.Clips > 0 {
		u.varying("vec4", "vWorldPosition")
		u.line("vWorldPosition = worldPosition;")
	}
	if f.Primitive == gpu.Points {
		u.uniform("float", "pointSize")
		u.line("gl_PointSize = pointSize;")
	}
}

// emitClipTest discards fragments on the far side of any active clip plane.
func emitClipTest(u *unit, f *Features) {
	if f.Clips == 0 {
		return
	}
	u.varying("vec4", "vWorldPosition")
	u.uniform("bool", "clippable")
	for i := 0; i < f.Clips; i++ {
		u.uniform("bool", indexed("clipActive", i))
		u.uniform("vec3", indexed("clipPos", i))
		u.uniform("vec3", indexed("clipDir", i))
	}
	u.open("if (clippable)")
	u.line("float dist = 0.0;")
	for i := 0; i < f.Clips; i++ {
		u.open("if (clipActive%d)", i)
		u.line("dist += clamp(dot(-clipDir%d.xyz, vWorldPosition.xyz - clipPos%d.xyz), 0.0, 1000.0);", i, i)
		u.close()
	}
	u.open("if (dist > 0.0)")
	u.line("discard;")
	u.close()
	u.close()
}

func emitParams(u *unit, f *Features) {
	for _, p := range f.Params {
		typ := "float"
		if p.Size > 1 {
			typ = "vec" + strconv.Itoa(p.Size)
		}
		u.uniform(typ, p.Name)
	}
}

func buildDrawVertex(f *Features) string {
	u := newUnit(f.Dialect, gpu.VertexShader)
	emitPosition(u, f)
	if f.lit() {
		u.uniform("mat4", "modelNormalMatrix")
		u.uniform("mat4", "viewNormalMatrix")
		u.varying("vec3", "vViewNormal")
		u.varying("vec3", "vViewPosition")
		if f.Quantized {
			u.attribute("vec2", "normal")
			u.fn(octDecodeFunc)
			u.line("vec4 localNormal = vec4(octDecode(normal.xy), 0.0);")
		} else {
			u.attribute("vec3", "normal")
			u.line("vec4 localNormal = vec4(normal, 0.0);")
		}
		u.line("vec4 worldNormal = modelNormalMatrix * localNormal;")
		u.line("vViewNormal = normalize((viewNormalMatrix * worldNormal).xyz);")
		u.line("vViewPosition = viewPosition.xyz;")
		for i, l := range f.Lights {
			emitLightVertex(u, i, l)
		}
	}
	if f.UV {
		u.attribute("vec2", "uv")
		u.varying("vec2", "vUV")
		if f.Quantized {
			u.uniform("mat3", "uvDecodeMatrix")
			u.line("vUV = (uvDecodeMatrix * vec3(uv, 1.0)).xy;")
		} else {
			u.line("vUV = uv;")
		}
	}
	if f.Colors {
		u.attribute("vec4", "color")
		u.varying("vec4", "vColor")
		u.line("vColor = color;")
	}
	u.line("gl_Position = projMatrix * viewPosition;")
	return u.String()
}

// emitLightVertex moves light i's position or direction into view space.
func emitLightVertex(u *unit, i int, l LightFeature) {
	toView := func(v string, w string) string {
		if l.Space == state.ViewSpace {
			return v
		}
		return "(viewMatrix * vec4(" + v + ", " + w + ")).xyz"
	}
	switch l.Type {
	case state.DirLight:
		u.uniform("vec3", indexed("lightDir", i))
		u.varying("vec3", indexed("vViewLightReverseDir", i))
		u.line("vViewLightReverseDir%d = -normalize(%s);", i, toView(indexed("lightDir", i), "0.0"))
	case state.PointLight, state.SpotLight:
		u.uniform("vec3", indexed("lightPos", i))
		u.varying("vec3", indexed("vViewLightPos", i))
		u.line("vViewLightPos%d = %s;", i, toView(indexed("lightPos", i), "1.0"))
		if l.Type == state.SpotLight {
			u.uniform("vec3", indexed("lightDir", i))
			u.varying("vec3", indexed("vViewSpotDir", i))
			u.line("vViewSpotDir%d = normalize(%s);", i, toView(indexed("lightDir", i), "0.0"))
		}
	}
}

func buildDrawFragment(f *Features) string {
	u := newUnit(f.Dialect, gpu.FragmentShader)
	emitClipTest(u, f)
	emitParams(u, f)
	tex := u.texture()

	u.uniform("vec3", "materialDiffuse")
	u.uniform("vec3", "materialEmissive")
	u.uniform("float", "materialAlpha")
	u.line("vec3 diffuseColor = materialDiffuse;")
	u.line("vec3 emissiveColor = materialEmissive;")
	u.line("float alpha = materialAlpha;")
	u.line("float occlusion = 1.0;")
	phong := f.lit() && f.Material == state.Phong
	if phong {
		u.uniform("vec3", "materialSpecular")
		u.uniform("float", "materialShininess")
		u.line("vec3 specularColor = materialSpecular;")
	}
	if f.Colors {
		u.varying("vec4", "vColor")
		u.line("diffuseColor *= vColor.rgb;")
		u.line("alpha *= vColor.a;")
	}
	if f.UV {
		u.varying("vec2", "vUV")
	}
	for _, slot := range f.Maps {
		name := slot.String()
		switch slot {
		case state.DiffuseMap:
			u.uniform("sampler2D", name)
			u.line("vec4 diffuseTexel = %s(%s, vUV);", tex, name)
			u.line("diffuseColor *= diffuseTexel.rgb;")
			u.line("alpha *= diffuseTexel.a;")
		case state.SpecularMap:
			if phong {
				u.uniform("sampler2D", name)
				u.line("specularColor *= %s(%s, vUV).rgb;", tex, name)
			}
		case state.EmissiveMap:
			u.uniform("sampler2D", name)
			u.line("emissiveColor *= %s(%s, vUV).rgb;", tex, name)
		case state.AlphaMap:
			u.uniform("sampler2D", name)
			u.line("alpha *= %s(%s, vUV).r;", tex, name)
		case state.OcclusionMap:
			u.uniform("sampler2D", name)
			u.line("occlusion = %s(%s, vUV).r;", tex, name)
		}
	}

	out := u.fragColor()
	if !f.lit() {
		u.line("%s = vec4(diffuseColor * occlusion + emissiveColor, alpha);", out)
		return u.String()
	}

	u.uniform("vec4", "lightAmbient")
	u.varying("vec3", "vViewNormal")
	u.varying("vec3", "vViewPosition")
	u.line("vec3 viewNormal = normalize(vViewNormal);")
	if f.hasMap(state.NormalMap) {
		u.extension("GL_OES_standard_derivatives")
		u.uniform("sampler2D", "normalMap")
		u.fn(perturbNormalFunc)
		u.line("viewNormal = perturbNormal2Arb(vViewPosition, viewNormal, %s(normalMap, vUV).rgb, vUV);", tex)
	}
	u.line("vec3 viewEyeDir = normalize(-vViewPosition);")
	u.line("vec3 reflectedColor = vec3(0.0);")
	u.line("vec3 specularLight = vec3(0.0);")
	u.line("vec3 L;")
	u.line("float attenuation;")
	for i, l := range f.Lights {
		emitLightFragment(u, i, l, phong)
	}
	u.line("vec3 ambientColor = lightAmbient.rgb * lightAmbient.a * diffuseColor * occlusion;")
	if phong {
		u.line("%s = vec4(ambientColor + reflectedColor * diffuseColor + specularLight * specularColor + emissiveColor, alpha);", out)
	} else {
		u.line("%s = vec4(ambientColor + reflectedColor * diffuseColor + emissiveColor, alpha);", out)
	}
	return u.String()
}

// emitLightFragment accumulates light i into reflectedColor and, for Phong,
// specularLight.
func emitLightFragment(u *unit, i int, l LightFeature, phong bool) {
	u.uniform("vec4", indexed("lightColor", i))
	switch l.Type {
	case state.DirLight:
		u.varying("vec3", indexed("vViewLightReverseDir", i))
		u.line("L = normalize(vViewLightReverseDir%d);", i)
		u.line("attenuation = 1.0;")
	case state.PointLight, state.SpotLight:
		u.uniform("vec3", indexed("lightAttenuation", i))
		u.varying("vec3", indexed("vViewLightPos", i))
		u.open("")
		u.line("vec3 toLight = vViewLightPos%d - vViewPosition;", i)
		u.line("float dist = length(toLight);")
		u.line("L = toLight / max(dist, 0.0001);")
		u.line("attenuation = 1.0 / (lightAttenuation%d.x + lightAttenuation%d.y * dist + lightAttenuation%d.z * dist * dist);", i, i, i)
		u.close()
		if l.Type == state.SpotLight {
			u.uniform("float", indexed("lightCutoff", i))
			u.varying("vec3", indexed("vViewSpotDir", i))
			u.line("attenuation *= step(lightCutoff%d, dot(-L, normalize(vViewSpotDir%d)));", i, i)
		}
	}
	u.line("reflectedColor += max(dot(viewNormal, L), 0.0) * lightColor%d.rgb * lightColor%d.a * attenuation;", i, i)
	if phong {
		u.line("specularLight += pow(max(dot(viewNormal, normalize(L + viewEyeDir)), 0.0), materialShininess) * lightColor%d.rgb * lightColor%d.a * attenuation;", i, i)
	}
}

func buildPickVertex(f *Features, v Variant) string {
	u := newUnit(f.Dialect, gpu.VertexShader)
	emitPosition(u, f)
	if v == PickPrimitive {
		u.attribute("vec4", "pickColor")
		u.varying("vec4", "vPickColor")
		u.line("vPickColor = pickColor;")
	}
	u.line("gl_Position = projMatrix * viewPosition;")
	return u.String()
}

func buildPickFragment(f *Features, v Variant) string {
	u := newUnit(f.Dialect, gpu.FragmentShader)
	emitClipTest(u, f)
	if v == PickPrimitive {
		u.varying("vec4", "vPickColor")
		u.line("%s = vPickColor;", u.fragColor())
	} else {
		u.uniform("vec4", "pickColor")
		u.line("%s = pickColor;", u.fragColor())
	}
	return u.String()
}

func indexed(name string, i int) string {
	return name + strconv.Itoa(i)
}
