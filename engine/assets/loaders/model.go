package loaders

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Vertex is one unique position, normal and texture coordinate combination
// of a mesh. It is comparable so it can key the dedup map.
type Vertex struct {
	Pos      mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Model is an indexed triangle list.
type Model struct {
	Vertices []Vertex
	Indices  []uint32
}

type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, name string) (*Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open model %q", name)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	model, err := ParseOBJ(file)
	if err != nil {
		return nil, errors.Wrapf(err, "model %q", name)
	}
	return &Resource{
		Name:     name,
		FullPath: path,
		Type:     ResourceTypeModel,
		DataSize: uint64(info.Size()),
		Data:     model,
	}, nil
}

func (ml *ModelLoader) Unload(*Resource) error {
	return nil
}

type objParser struct {
	positions []mgl32.Vec3
	texCoords []mgl32.Vec2
	normals   []mgl32.Vec3

	model  Model
	unique map[Vertex]uint32
}

// ParseOBJ reads the v, vt, vn and f statements of a Wavefront OBJ stream.
// Faces with more than three corners are fan triangulated and texture
// coordinates are flipped vertically. Every other statement is ignored.
func ParseOBJ(r io.Reader) (*Model, error) {
	p := &objParser{unique: make(map[Vertex]uint32)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if err := p.statement(fields[0], fields[1:]); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &p.model, nil
}

func (p *objParser) statement(keyword string, args []string) error {
	switch keyword {
	case "v":
		v, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		p.positions = append(p.positions, mgl32.Vec3{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(args, 1)
		if err != nil {
			return err
		}
		var t mgl32.Vec2
		t[0] = v[0]
		if len(v) > 1 {
			t[1] = v[1]
		}
		t[1] = 1 - t[1]
		p.texCoords = append(p.texCoords, t)
	case "vn":
		v, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		p.normals = append(p.normals, mgl32.Vec3{v[0], v[1], v[2]})
	case "f":
		if len(args) < 3 {
			return errors.Errorf("face with %d vertices", len(args))
		}
		corners := make([]uint32, len(args))
		for i, arg := range args {
			index, err := p.corner(arg)
			if err != nil {
				return err
			}
			corners[i] = index
		}
		for i := 1; i+1 < len(corners); i++ {
			p.model.Indices = append(p.model.Indices, corners[0], corners[i], corners[i+1])
		}
	}
	return nil
}

// corner resolves a v, v/vt, v//vn or v/vt/vn reference to a vertex index,
// adding the vertex when it has not been seen before.
func (p *objParser) corner(ref string) (uint32, error) {
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return 0, errors.Errorf("malformed face vertex %q", ref)
	}

	var vertex Vertex
	pos, err := resolveIndex(parts[0], len(p.positions))
	if err != nil {
		return 0, errors.Wrapf(err, "position of %q", ref)
	}
	vertex.Pos = p.positions[pos]

	if len(parts) > 1 && parts[1] != "" {
		tc, err := resolveIndex(parts[1], len(p.texCoords))
		if err != nil {
			return 0, errors.Wrapf(err, "texture coordinate of %q", ref)
		}
		vertex.TexCoord = p.texCoords[tc]
	}
	if len(parts) > 2 && parts[2] != "" {
		n, err := resolveIndex(parts[2], len(p.normals))
		if err != nil {
			return 0, errors.Wrapf(err, "normal of %q", ref)
		}
		vertex.Normal = p.normals[n]
	}

	if index, ok := p.unique[vertex]; ok {
		return index, nil
	}
	index := uint32(len(p.model.Vertices))
	p.unique[vertex] = index
	p.model.Vertices = append(p.model.Vertices, vertex)
	return index, nil
}

// resolveIndex turns a 1 based (or negative, relative) OBJ index into a 0
// based slice index.
func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "index %q", s)
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	default:
		return 0, errors.Errorf("index %d out of range 1..%d", i, count)
	}
}

func parseFloats(args []string, min int) ([]float32, error) {
	if len(args) < min {
		return nil, errors.Errorf("expected at least %d values, got %d", min, len(args))
	}
	out := make([]float32, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "value %q", a)
		}
		out[i] = float32(f)
	}
	return out, nil
}
