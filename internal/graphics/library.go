package graphics

import (
	_ "embed"
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"os"
	"stagerender/internal/batch"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
)

var (
	//go:embed shaders/lit.vert
	litVertexSource string
	//go:embed shaders/lit.frag
	litFragmentSource string
)

// Library maps the shader and texture ids used by materials to GL objects.
// Shader 0 is the built-in lit shader; texture 0 means no texture.
type Library struct {
	mu         sync.RWMutex
	shaders    map[batch.ShaderID]*Shader
	textures   map[batch.TextureID]uint32
	byPath     map[string]batch.TextureID
	nextShader batch.ShaderID
	nextTex    batch.TextureID
}

// NewLibrary compiles the built-in shader. It needs a current GL context.
func NewLibrary() (*Library, error) {
	lit, err := NewShaderFromSource(litVertexSource, litFragmentSource)
	if err != nil {
		return nil, fmt.Errorf("built-in shader: %w", err)
	}
	return &Library{
		shaders:    map[batch.ShaderID]*Shader{0: lit},
		textures:   make(map[batch.TextureID]uint32),
		byPath:     make(map[string]batch.TextureID),
		nextShader: 1,
		nextTex:    1,
	}, nil
}

// AddShader registers s and returns the id materials use to select it.
func (l *Library) AddShader(s *Shader) batch.ShaderID {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextShader
	l.nextShader++
	l.shaders[id] = s
	return id
}

// LoadShader compiles a program from files and registers it.
func (l *Library) LoadShader(vertexPath, fragmentPath string) (batch.ShaderID, error) {
	s, err := NewShader(vertexPath, fragmentPath)
	if err != nil {
		return 0, err
	}
	return l.AddShader(s), nil
}

// Shader returns the program for id, falling back to the built-in shader.
func (l *Library) Shader(id batch.ShaderID) *Shader {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.shaders[id]; ok {
		return s
	}
	return l.shaders[0]
}

// Texture returns the GL texture for id, or 0.
func (l *Library) Texture(id batch.TextureID) uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.textures[id]
}

// LoadTexture returns the id of the texture at path, loading it on first use.
func (l *Library) LoadTexture(path string) (batch.TextureID, error) {
	l.mu.RLock()
	if id, ok := l.byPath[path]; ok {
		l.mu.RUnlock()
		return id, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double check locking
	if id, ok := l.byPath[path]; ok {
		return id, nil
	}

	tex, err := loadTexture(path)
	if err != nil {
		return 0, err
	}
	id := l.nextTex
	l.nextTex++
	l.textures[id] = tex
	l.byPath[path] = id
	return id, nil
}

// Delete frees every program and texture.
func (l *Library) Delete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, s := range l.shaders {
		s.Delete()
		delete(l.shaders, id)
	}
	for id, tex := range l.textures {
		gl.DeleteTextures(1, &tex)
		delete(l.textures, id)
	}
	clear(l.byPath)
}

// loadTexture loads a 2D texture from a file
func loadTexture(path string) (uint32, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open texture file: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return 0, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, image.Point{0, 0}, draw.Src)

	var texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D, texture)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA,
		int32(rgba.Rect.Size().X),
		int32(rgba.Rect.Size().Y),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(rgba.Pix),
	)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.BindTexture(gl.TEXTURE_2D, 0)

	return texture, nil
}
