package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// prompter reads interactive input. Tests replace the huh forms with a
// scripted implementation.
type prompter interface {
	Input(title string) (string, error)
	Secret(title string) (string, error)
}

type huhPrompter struct{}

func (huhPrompter) Input(title string) (string, error) {
	var value string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Value(&value).
			Validate(required),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(value), nil
}

func (huhPrompter) Secret(title string) (string, error) {
	var value string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(&value).
			Validate(required),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return value, nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value is required")
	}
	return nil
}
