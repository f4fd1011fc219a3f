package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ahrav/go-concord/internal/domain"
)

// PromptExt is the extension of prompt files.
const PromptExt = ".md"

// LoadPrompts reads every *.md file directly inside dir, sorted by file
// name. A prompt's id is its file name without the extension and its
// content is the trimmed file body. Subdirectories are not scanned.
func LoadPrompts(dir string) ([]domain.Prompt, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), PromptExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	prompts := make([]domain.Prompt, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt %s: %w", name, err)
		}
		prompts = append(prompts, domain.Prompt{
			ID:         strings.TrimSuffix(name, PromptExt),
			Content:    strings.TrimSpace(string(data)),
			SourcePath: path,
		})
	}
	return prompts, nil
}

// FindPrompt loads the single prompt with the given id from dir. It returns
// domain.ErrPromptNotFound when no such file exists or the id would resolve
// outside dir.
func FindPrompt(dir, id string) (domain.Prompt, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return domain.Prompt{}, fmt.Errorf("%w: %q", domain.ErrPromptNotFound, id)
	}

	path := filepath.Join(dir, id+PromptExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Prompt{}, fmt.Errorf("%w: %q", domain.ErrPromptNotFound, id)
		}
		return domain.Prompt{}, fmt.Errorf("failed to read prompt %s: %w", id, err)
	}
	return domain.Prompt{ID: id, Content: strings.TrimSpace(string(data)), SourcePath: path}, nil
}

// PromptDirectory serves prompts from a directory by id.
type PromptDirectory string

// ReadPrompt returns the trimmed content of the prompt with the given id.
func (d PromptDirectory) ReadPrompt(_ context.Context, id string) (string, error) {
	p, err := FindPrompt(string(d), id)
	if err != nil {
		return "", err
	}
	return p.Content, nil
}
