package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ChamsBouzaiene/flowsmith/internal/config"
	"github.com/ChamsBouzaiene/flowsmith/internal/project"
	"github.com/ChamsBouzaiene/flowsmith/internal/prompts"
	"github.com/ChamsBouzaiene/flowsmith/internal/recorder"
	"github.com/ChamsBouzaiene/flowsmith/internal/session"
	"github.com/ChamsBouzaiene/flowsmith/internal/workflow"
)

type runtimeEnv struct {
	Workspace string
	Config    *config.Config
	Project   *project.ProjectConfig // nil without a .flowsmith/config.yaml
	Rules     string
	Prompts   *prompts.PromptRegistry
	Sessions  *session.Store
	Recorder  *recorder.DB
}

func (r *runtimeEnv) Close() {
	if r.Recorder != nil {
		if err := r.Recorder.Close(); err != nil {
			log.Printf("⚠️  Failed to close call log: %v", err)
		}
	}
}

func prepareRuntimeEnv(ctx context.Context, workspaceFlag string) (*runtimeEnv, error) {
	workspace := workspaceFlag
	if workspace == "" {
		var err error
		workspace, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	absWorkspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	if info, err := os.Stat(absWorkspace); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("workspace path is not a valid directory: %s", absWorkspace)
	}

	mgr, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}
	dataDir := mgr.DataDir(cfg)

	proj, err := project.LoadConfig(absWorkspace)
	if err != nil {
		return nil, err
	}
	rules, err := project.LoadRules(absWorkspace)
	if err != nil {
		return nil, err
	}

	registry := prompts.NewWorkflowRegistry()
	n, err := registry.LoadOverrides(project.PromptsPath(absWorkspace))
	if err != nil {
		return nil, err
	}
	if n > 0 {
		log.Printf("📝 Loaded %d prompt override(s)", n)
	}

	rec, err := recorder.Open(ctx, filepath.Join(dataDir, "recorder"))
	if err != nil {
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}

	log.Printf("Workspace: %s (data: %s)", absWorkspace, dataDir)
	return &runtimeEnv{
		Workspace: absWorkspace,
		Config:    cfg,
		Project:   proj,
		Rules:     rules,
		Prompts:   registry,
		Sessions:  session.NewStore(dataDir),
		Recorder:  rec,
	}, nil
}

// loadCatalog resolves the catalog from the flag, then the project config,
// then the user config. Relative config paths are taken from the workspace.
func (r *runtimeEnv) loadCatalog(flagPath string) (*workflow.Catalog, error) {
	path := flagPath
	if path == "" && r.Project != nil {
		path = r.Project.CatalogPath
	}
	if path == "" {
		path = r.Config.CatalogPath
	}
	if path == "" {
		log.Printf("⚠️  No integration catalog configured; use --catalog")
		return &workflow.Catalog{}, nil
	}
	if !filepath.IsAbs(path) && flagPath == "" {
		path = filepath.Join(r.Workspace, path)
	}
	return workflow.LoadCatalog(path)
}
