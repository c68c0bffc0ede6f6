package llm

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/biaslens/internal/model"
)

// ScriptedProvider replays canned responses keyed by prompt instance ID.
// It supports manual workflows (responses collected outside the tool and
// pasted into a YAML file) and deterministic end-to-end runs without any
// network access.
type ScriptedProvider struct {
	responses map[string]string
	modelName string
}

type scriptFile struct {
	Model     string            `yaml:"model,omitempty"`
	Responses map[string]string `yaml:"responses"`
}

// NewScriptedProvider loads the response script from cfg.ScriptPath.
func NewScriptedProvider(cfg model.LLMConfig) (*ScriptedProvider, error) {
	if cfg.ScriptPath == "" {
		return nil, fmt.Errorf("scripted provider requires a script path")
	}

	data, err := os.ReadFile(cfg.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var sf scriptFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", cfg.ScriptPath, err)
	}
	if len(sf.Responses) == 0 {
		return nil, fmt.Errorf("script %s has no responses", cfg.ScriptPath)
	}

	modelName := sf.Model
	if modelName == "" {
		modelName = "scripted"
	}

	return &ScriptedProvider{responses: sf.Responses, modelName: modelName}, nil
}

// NewScriptedFromMap builds a scripted provider directly from a map.
// Used by tests and embedding callers.
func NewScriptedFromMap(responses map[string]string) *ScriptedProvider {
	return &ScriptedProvider{responses: responses, modelName: "scripted"}
}

// Name returns the provider name.
func (p *ScriptedProvider) Name() string {
	return "scripted"
}

// IsAvailable always succeeds; the script is already in memory.
func (p *ScriptedProvider) IsAvailable(ctx context.Context) bool {
	return true
}

// Complete looks up the canned response for the instance. A missing entry is
// a permanent failure: retrying cannot produce one.
func (p *ScriptedProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, ok := p.responses[req.InstanceID]
	if !ok {
		return nil, permanentErr("scripted", fmt.Errorf("no scripted response for instance %q", req.InstanceID))
	}
	return &Response{Text: text, Model: p.modelName}, nil
}
