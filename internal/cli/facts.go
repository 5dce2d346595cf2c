package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aescanero/dago-rulekit/pkg/dsl"
)

// readFacts reads a facts document. "-" reads JSON from stdin; files are
// decoded as YAML or JSON by extension.
func readFacts(path string, stdin io.Reader) (dsl.Facts, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read facts: %w", err)
	}

	facts := dsl.Facts{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &facts)
	case ".json", "":
		err = json.Unmarshal(data, &facts)
	default:
		return nil, fmt.Errorf("unsupported facts file extension %q: use .json, .yaml or .yml", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse facts: %w", err)
	}

	return facts, nil
}
