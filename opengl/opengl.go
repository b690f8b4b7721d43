//go:build !nogl
// +build !nogl

package opengl

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/geo/r2"

	"github.com/sul31man/bacteria"
)

// Run shows the trajectories of src in an OpenGL window until it is closed
// or ctx is canceled.
func Run(ctx context.Context, src Source, f *bacteria.FlowField, conf *Config) error {
	// init GLFW and OpenGL
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Samples, 4)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	// create OpenGL window with the aspect ratio of the domain
	const (
		title = "Bacteria"
		width = 1200
	)
	height := int(math.Max(200, width*(conf.Ymax-conf.Ymin)/(conf.Xmax-conf.Xmin)))
	w, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return err
	}
	w.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return err
	}

	// set background color and enable alpha blending
	gl.Enable(gl.BLEND)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(0, 0, 0, 1)
	fw, fh := w.GetFramebufferSize()
	gl.Viewport(0, 0, int32(fw), int32(fh))

	// initialize OpenGL objects
	d, err := newDisplay()
	if err != nil {
		return err
	}

	// handle scrolling zoom
	vp := conf.viewport()
	w.SetScrollCallback(func(w *glfw.Window, xo, yo float64) {
		xc, yc := w.GetCursorPos()
		xs, ys := w.GetSize()
		x, y := float32(xc)/float32(xs), (float32(ys)-float32(yc))/float32(ys)
		dx, dy := vp[1].X-vp[0].X, vp[1].Y-vp[0].Y
		z := 0.05 * float32(yo)
		vp[0].X += z * (x * dx)
		vp[0].Y += z * (y * dy)
		vp[1].X -= z * (1 - x) * dx
		vp[1].Y -= z * (1 - y) * dy
	})

	c := newControls(conf)
	w.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			c.quit = true
		}
		if key == glfw.KeySpace && action == glfw.Press {
			c.togglePause()
		}
		if key == glfw.KeyRight && (action == glfw.Press || action == glfw.Repeat) {
			c.stepOnce()
		}
		if key == glfw.KeyR && action == glfw.Press {
			vp = conf.viewport()
		}
	})

	obstacle := circle(f.Center, f.R, 64)
	walls := []float32{0, 0, float32(f.L), 0, float32(f.L), float32(f.H), 0, float32(f.H)}
	for !(c.quit || w.ShouldClose() || ctx.Err() != nil) {
		c.tick(conf.Step)
		d.draw(src.Trajectories(), obstacle, walls, vp)
		w.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}

// A viewport is a rectangle delimiting the area of simulation space shown on screen.
// The first point is the bottom left corner, the second point is the top right corner.
type viewport [2]struct{ X, Y float32 }

func (c *Config) viewport() viewport {
	return viewport{{float32(c.Xmin), float32(c.Ymin)}, {float32(c.Xmax), float32(c.Ymax)}}
}

// display contains all the OpenGL objects required to display the simulation.
type display struct {
	vao  uint32 // vertex array object
	vbo  uint32 // vertex buffer
	prog uint32
	uni  struct {
		vp    int32 // viewport
		color int32 // RGBA color
	}
	buf []float32 // staging buffer
}

// draw uploads all vertices and draws walls, obstacle, trajectories and agents.
func (d *display) draw(trajs [][]r2.Point, obstacle, walls []float32, vp viewport) {
	d.buf = append(d.buf[:0], walls...)
	d.buf = append(d.buf, obstacle...)
	for _, tr := range trajs {
		for _, p := range tr {
			d.buf = append(d.buf, float32(p.X), float32(p.Y))
		}
	}
	for _, tr := range trajs {
		if len(tr) > 0 {
			p := tr[len(tr)-1]
			d.buf = append(d.buf, float32(p.X), float32(p.Y))
		}
	}

	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.UseProgram(d.prog)
	gl.Uniform2fv(d.uni.vp, 2, &vp[0].X)
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(d.buf), gl.Ptr(d.buf), gl.STREAM_DRAW)

	first := int32(0)
	gl.Uniform4f(d.uni.color, 0.6, 0.6, 0.6, 1)
	gl.DrawArrays(gl.LINE_LOOP, first, int32(len(walls)/2))
	first += int32(len(walls) / 2)

	gl.Uniform4f(d.uni.color, 0.5, 0.5, 0.5, 1)
	gl.DrawArrays(gl.TRIANGLE_FAN, first, int32(len(obstacle)/2))
	first += int32(len(obstacle) / 2)

	for i, tr := range trajs {
		r, g, b := palette(i)
		gl.Uniform4f(d.uni.color, r, g, b, 0.7)
		gl.DrawArrays(gl.LINE_STRIP, first, int32(len(tr)))
		first += int32(len(tr))
	}

	gl.Uniform4f(d.uni.color, 1, 1, 0, 1)
	gl.DrawArrays(gl.POINTS, first, int32(len(d.buf))/2-first)
}

// palette returns a distinct color for trajectory i.
func palette(i int) (r, g, b float32) {
	h := math.Mod(float64(i)*0.618033988749895, 1) * 6
	x := float32(1 - math.Abs(math.Mod(h, 2)-1))
	switch int(h) {
	case 0:
		return 1, x, 0
	case 1:
		return x, 1, 0
	case 2:
		return 0, 1, x
	case 3:
		return 0, x, 1
	case 4:
		return x, 0, 1
	default:
		return 1, 0, x
	}
}

// circle returns the vertices of a triangle fan approximating a disk.
func circle(c r2.Point, r float64, n int) []float32 {
	v := make([]float32, 0, 2*(n+2))
	v = append(v, float32(c.X), float32(c.Y))
	for i := 0; i <= n; i++ {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / float64(n))
		v = append(v, float32(c.X+r*cos), float32(c.Y+r*sin))
	}
	return v
}

// newDisplay compiles shaders and initializes a display.
func newDisplay() (*display, error) {
	d := new(display)

	var err error
	d.prog, err = makeProg([]shader{
		{"Vertex", vertexShader, gl.CreateShader(gl.VERTEX_SHADER)},
		{"Fragment", fragmentShader, gl.CreateShader(gl.FRAGMENT_SHADER)},
	})
	if err != nil {
		return nil, err
	}
	d.uni.vp = gl.GetUniformLocation(d.prog, gl.Str("vp\x00"))
	d.uni.color = gl.GetUniformLocation(d.prog, gl.Str("color\x00"))

	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	gl.GenBuffers(1, &d.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)

	// attribute location is specified in the shader with layout(location=0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 0, nil)

	return d, nil
}

const vertexShader = `
#version 330 core
layout(location = 0) in vec2 pos;
uniform vec2 vp[2];
void main() {
	gl_Position = vec4(2.0 * (pos - vp[0]) / (vp[1] - vp[0]) - 1.0, 0.0, 1.0);
	gl_PointSize = 5.0;
}
`

const fragmentShader = `
#version 330 core
uniform vec4 color;
out vec4 frag;
void main() {
	frag = color;
}
`

// A shader wraps an OpenGL shader.
type shader struct {
	name   string
	src    string
	shader uint32
}

// makeProg builds OpenGL programs.
func makeProg(shaders []shader) (uint32, error) {
	var fail bool
	for _, s := range shaders {
		str, free := gl.Strs(strings.TrimSpace(s.src) + "\n\x00")
		gl.ShaderSource(s.shader, 1, str, nil)
		free()
		gl.CompileShader(s.shader)
		var status int32
		gl.GetShaderiv(s.shader, gl.COMPILE_STATUS, &status)
		if status != gl.TRUE {
			var n int32
			gl.GetShaderiv(s.shader, gl.INFO_LOG_LENGTH, &n)
			log := make([]uint8, n+1)
			gl.GetShaderInfoLog(s.shader, n, &n, &log[0])
			fmt.Printf("### %s shader compilation error ###\n\n%s\n\n", s.name, gl.GoStr(&log[0]))
			fail = true
			gl.DeleteShader(s.shader)
		}
	}
	if fail {
		return 0, fmt.Errorf("bacteria: GLSL errors")
	}
	prog := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(prog, s.shader)
	}
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status != gl.TRUE {
		return 0, fmt.Errorf("bacteria: failed to link shader program")
	}
	return prog, nil
}
