// Package jobfile reads batch translation jobs from JSON or YAML files.
package jobfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"horse.fit/aidesk/internal/capability"
)

// AutoSource asks the runner to detect the source language from the texts.
const AutoSource = "auto"

//go:embed job.schema.json
var jobSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

type Job struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	SourceLang string   `json:"source_lang,omitempty" yaml:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang" yaml:"target_lang"`
	Texts      []string `json:"texts" yaml:"texts"`
}

// AutoDetect reports whether the source language must be detected.
func (j Job) AutoDetect() bool {
	source := strings.ToLower(strings.TrimSpace(j.SourceLang))
	return source == "" || source == AutoSource
}

// Pair returns the language pair, with source taken from detected when the
// job asks for detection.
func (j Job) Pair(detected string) capability.LanguagePair {
	source := j.SourceLang
	if j.AutoDetect() {
		source = detected
	}
	return capability.NewLanguagePair(source, j.TargetLang)
}

// Supported reports whether path has a job file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func Load(path string) (*Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	job, err := Parse(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if job.Name == "" {
		job.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return job, nil
}

// Parse decodes a job document. ext selects the syntax (".json", ".yaml" or ".yml").
func Parse(raw []byte, ext string) (*Job, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("job file is empty")
	}

	var value any
	switch strings.ToLower(ext) {
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		if err := decoder.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported job file extension %q", ext)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize job: %w", err)
	}
	var job Job
	if err := json.Unmarshal(normalized, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	job.Name = strings.TrimSpace(job.Name)

	if !job.AutoDetect() && capability.NormalizeLanguage(job.SourceLang) == "" {
		return nil, fmt.Errorf("source_lang %q is not a language code", job.SourceLang)
	}
	if capability.NormalizeLanguage(job.TargetLang) == "" {
		return nil, fmt.Errorf("target_lang %q is not a language code", job.TargetLang)
	}
	return &job, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("job.schema.json", strings.NewReader(jobSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("job.schema.json")
	})
	return compiledSchema, compiledSchemaErr
}
