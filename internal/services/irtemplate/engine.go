// Package irtemplate loads declarative YAML IR-scrape templates and runs
// them against a page fetcher (spec.md §4.7).
package irtemplate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// Engine loads and caches IR templates from a directory, and runs the
// scrape algorithm against them.
type Engine struct {
	templatesDir   string
	customScrapers map[string]CustomScraper
	validate       *validator.Validate
	logger         arbor.ILogger

	mu      sync.RWMutex
	cache   map[string]models.IRTemplate // keyed by sec_code
	watcher *templateWatcher
}

// NewEngine builds a template engine rooted at templatesDir.
// customScrapers is the explicit registry custom_class names resolve
// against; pass an empty map if no company needs one. If watchReload is
// true, an fsnotify watcher invalidates the per-sec-code cache entry when
// its file changes on disk.
func NewEngine(templatesDir string, customScrapers map[string]CustomScraper, watchReload bool, logger arbor.ILogger) (*Engine, error) {
	if customScrapers == nil {
		customScrapers = map[string]CustomScraper{}
	}
	e := &Engine{
		templatesDir:   templatesDir,
		customScrapers: customScrapers,
		validate:       validator.New(),
		logger:         logger,
		cache:          make(map[string]models.IRTemplate),
	}
	if watchReload {
		w, err := newTemplateWatcher(templatesDir, e.invalidate, logger)
		if err != nil {
			logger.Warn().Err(err).Str("dir", templatesDir).Msg("IR template hot-reload watcher unavailable")
		} else {
			e.watcher = w
		}
	}
	return e, nil
}

// Close stops the hot-reload watcher, if one is running.
func (e *Engine) Close() error {
	if e.watcher == nil {
		return nil
	}
	return e.watcher.Close()
}

// LoadTemplate globs templatesDir for "<sec_code>_*.yaml", parses and
// validates the first match, and caches it by securities code. Returns
// (nil, nil) if no template file matches — that is not an error, it just
// means the caller should fall back to the LLM explorer.
func (e *Engine) LoadTemplate(secCode string) (*models.IRTemplate, error) {
	e.mu.RLock()
	if tmpl, ok := e.cache[secCode]; ok {
		e.mu.RUnlock()
		return &tmpl, nil
	}
	e.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(e.templatesDir, secCode+"_*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("invalid template glob for %s: %w", secCode, err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	tmpl, err := e.parseAndValidate(matches[0])
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[secCode] = tmpl
	e.mu.Unlock()
	return &tmpl, nil
}

func (e *Engine) parseAndValidate(path string) (models.IRTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.IRTemplate{}, fmt.Errorf("failed to read template %s: %w", path, err)
	}

	var tmpl models.IRTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return models.IRTemplate{}, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	tmpl.SourcePath = path

	if err := e.validate.Struct(tmpl); err != nil {
		return models.IRTemplate{}, fmt.Errorf("template %s failed validation: %w", path, err)
	}

	if tmpl.CustomClass != "" {
		if _, ok := e.customScrapers[tmpl.CustomClass]; !ok {
			return models.IRTemplate{}, apperrors.New(apperrors.KindTemplateNotFound,
				fmt.Sprintf("template %s names custom_class %q, which is not registered", path, tmpl.CustomClass))
		}
	}

	return tmpl, nil
}

// ListTemplates returns every securities code with a template file on
// disk, sorted ascending.
func (e *Engine) ListTemplates() []string {
	entries, err := os.ReadDir(e.templatesDir)
	if err != nil {
		return nil
	}
	var codes []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".yaml")
		parts := strings.SplitN(base, "_", 2)
		if len(parts) == 2 && len(parts[0]) == 5 && isDigits(parts[0]) {
			codes = append(codes, parts[0])
		}
	}
	sort.Strings(codes)
	return codes
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// invalidate drops a sec code's cached template, forcing the next
// LoadTemplate call to re-read it from disk.
func (e *Engine) invalidate(secCode string) {
	e.mu.Lock()
	delete(e.cache, secCode)
	e.mu.Unlock()
	e.logger.Debug().Str("sec_code", secCode).Msg("invalidated IR template cache entry")
}
