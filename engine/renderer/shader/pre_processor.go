// pre_processor.go expands include directives in material WGSL sources. A directive is a
// single comment line of the form "//#include <chunk>" and is replaced with the registered
// chunk source. Each chunk is injected at most once per program.
package shader

import (
	_ "embed"
	"fmt"
	"strings"
)

const includePrefix = "//#include"

//go:embed assets/frame.wgsl
var frameChunk string

//go:embed assets/light.wgsl
var lightChunk string

//go:embed assets/material_params.wgsl
var materialParamsChunk string

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	chunks map[string]string
}

// PreProcessor expands "//#include" directives in WGSL source.
type PreProcessor interface {
	// Process replaces every include directive with its chunk source.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error naming the line of an unknown or malformed include
	Process(source string) (string, error)

	// Register adds or replaces a named chunk.
	//
	// Parameters:
	//   - name: the include name
	//   - source: the WGSL text injected for it
	Register(name, source string)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor preloaded with the engine chunks:
// "frame" (FrameUniform), "light" (Light) and "material_params" (MaterialParams).
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		chunks: map[string]string{
			"frame":           frameChunk,
			"light":           lightChunk,
			"material_params": materialParamsChunk,
		},
	}
}

func (p *preProcessor) Register(name, source string) {
	p.chunks[name] = source
}

func (p *preProcessor) Process(source string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(source))
	included := make(map[string]bool)

	for i, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, includePrefix) {
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}

		fields := strings.Fields(strings.TrimPrefix(trimmed, includePrefix))
		if len(fields) != 1 {
			return "", fmt.Errorf("line %d: include expects exactly one chunk name", i+1)
		}
		name := fields[0]
		chunk, ok := p.chunks[name]
		if !ok {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, name)
		}
		if included[name] {
			continue
		}
		included[name] = true
		sb.WriteString(chunk)
		if !strings.HasSuffix(chunk, "\n") {
			sb.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(sb.String(), "\n"), nil
}
