package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"
)

// ProjectFile is the beep.config.json written into scaffolded projects.
// The API key deliberately has no place here; it only ever lives in .env.
type ProjectFile struct {
	Mode      Mode   `json:"mode"`
	ServerURL string `json:"serverUrl,omitempty"`
	Port      int    `json:"port,omitempty"`
}

const projectFileName = "beep.config.json"
const envFileName = ".env"

// projectSchema validates beep.config.json before it is trusted
const projectSchema = `{
	"type": "object",
	"properties": {
		"mode": {"type": "string", "enum": ["https", "stdio"]},
		"serverUrl": {"type": "string"},
		"port": {"type": "integer", "minimum": 1, "maximum": 65535}
	},
	"required": ["mode"],
	"additionalProperties": false
}`

// ReadProject loads and validates beep.config.json from dir
func ReadProject(dir string) (*ProjectFile, error) {
	path := filepath.Join(dir, projectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", projectFileName, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(projectSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s: %w", projectFileName, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%s is invalid: %s", projectFileName, result.Errors()[0])
	}

	var project ProjectFile
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", projectFileName, err)
	}
	return &project, nil
}

// ScaffoldOptions controls project scaffolding
type ScaffoldOptions struct {
	Dir    string
	Mode   Mode
	APIKey string
	Port   int
}

// Scaffold writes .env and beep.config.json into the target directory.
// An existing beep.config.json is merged: fields the caller doesn't set are
// preserved. The API key is written to .env only, never to JSON.
func Scaffold(opts ScaffoldOptions) error {
	if opts.Mode != ModeHTTPS && opts.Mode != ModeStdio {
		return fmt.Errorf("invalid mode %q: want https or stdio", opts.Mode)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	project := &ProjectFile{Mode: opts.Mode, Port: opts.Port}
	if existing, err := ReadProject(opts.Dir); err == nil {
		if project.Port == 0 {
			project.Port = existing.Port
		}
		project.ServerURL = existing.ServerURL
	}

	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", projectFileName, err)
	}
	if err := os.WriteFile(filepath.Join(opts.Dir, projectFileName), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", projectFileName, err)
	}

	envContent := fmt.Sprintf("COMMUNICATION_MODE=%s\n", opts.Mode)
	if opts.APIKey != "" {
		envContent += fmt.Sprintf("BEEP_API_KEY=%s\n", opts.APIKey)
	}
	if err := os.WriteFile(filepath.Join(opts.Dir, envFileName), []byte(envContent), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", envFileName, err)
	}

	return nil
}
