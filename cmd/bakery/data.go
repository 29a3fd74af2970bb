package main

import (
	"fmt"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/project"
)

// exportData writes config, worker settings and templates to one backup
// file.
func exportData(path string, cfg model.AppConfig, opts options) error {
	settings, err := project.LoadWorkerSettings(opts.settingsPath)
	if err != nil {
		return err
	}
	store, err := project.LoadTemplates(opts.templates)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	return project.ExportAllData(path, cfg, settings, store)
}

// importData restores a backup file over the configured files.
func importData(path string, opts options) error {
	backup, err := project.ImportAllData(path)
	if err != nil {
		return err
	}
	if err := project.SaveAppConfig(opts.configPath, backup.Config); err != nil {
		return err
	}
	if err := project.SaveWorkerSettings(opts.settingsPath, backup.Workers); err != nil {
		return err
	}
	if err := project.SaveTemplates(opts.templates, backup.Templates); err != nil {
		return fmt.Errorf("failed to save templates: %w", err)
	}
	return nil
}

func loadTemplateJob(path, name string) (model.PackingJob, error) {
	store, err := project.LoadTemplates(path)
	if err != nil {
		return model.PackingJob{}, fmt.Errorf("failed to load templates: %w", err)
	}
	t := store.FindByName(name)
	if t == nil {
		return model.PackingJob{}, fmt.Errorf("no template named %q", name)
	}
	return t.ToJob(), nil
}

// saveTemplate stores job under name, replacing a template of that name.
func saveTemplate(path, name, description string, job model.PackingJob) error {
	store, err := project.LoadTemplates(path)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	if old := store.FindByName(name); old != nil {
		store.Remove(old.ID)
	}
	store.Add(model.NewJobTemplate(name, description, job))
	if err := project.SaveTemplates(path, store); err != nil {
		return fmt.Errorf("failed to save templates: %w", err)
	}
	return nil
}
