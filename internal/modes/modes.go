// Package modes resolves the hotkey-triggered screen reasoning modes from
// configuration.
package modes

import (
	"github.com/earshot-app/earshot/internal/config"
	"github.com/earshot-app/earshot/internal/errors"
)

// Mode is one hotkey-triggered reasoning profile.
type Mode struct {
	Name   string
	Hotkey string
	Model  string
	Prompt string
}

// Load builds the active modes. The primary mode always exists; the
// secondary appears only when its hotkey is configured and inherits the
// primary's model and prompt unless overridden.
func Load(cfg config.Modes) ([]Mode, error) {
	if cfg.PrimaryHotkey == "" {
		return nil, errors.New(errors.CodeConfigInvalid, "PRIMARY_HOTKEY must be set")
	}
	ms := []Mode{{
		Name:   "primary",
		Hotkey: cfg.PrimaryHotkey,
		Model:  cfg.PrimaryModel,
		Prompt: cfg.PrimaryPrompt,
	}}
	if cfg.SecondaryHotkey != "" {
		m := Mode{
			Name:   "secondary",
			Hotkey: cfg.SecondaryHotkey,
			Model:  cfg.SecondaryModel,
			Prompt: cfg.SecondaryPrompt,
		}
		if m.Model == "" {
			m.Model = cfg.PrimaryModel
		}
		if m.Prompt == "" {
			m.Prompt = cfg.PrimaryPrompt
		}
		ms = append(ms, m)
	}
	return ms, nil
}
