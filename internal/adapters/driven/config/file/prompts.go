package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/llm"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// ErrUnknownPrompt is returned for a name with no default template.
var ErrUnknownPrompt = errors.New("unknown prompt")

var defaultPrompts = map[string]string{
	driven.PromptAnswerSystem: llm.DefaultSystemPrompt,
	driven.PromptAnswer:       llm.DefaultAnswerPrompt,
}

// placeholders is the number of fmt verbs each template must consume.
var placeholders = map[string]int{
	driven.PromptAnswerSystem: 0,
	driven.PromptAnswer:       2,
}

const promptReadme = `# Answer Prompts

These files control how questions are put to the configured LLM.

- ` + "`answer_system.txt`" + ` - Instructions sent as the system message
- ` + "`answer.txt`" + ` - The question template

` + "`answer.txt`" + ` takes two Go fmt placeholders: the retrieved context blocks
first, then the question. Use ` + "`%[1]s`" + ` and ` + "`%[2]s`" + ` to reorder them.
A template with the wrong number of placeholders is ignored in favour of the default.

Changes take effect on the next command or after restarting the TUI.
Delete a file to restore its default.
`

// PromptStore reads answer templates from <dir>/<name>.txt. The directory
// and default files are written on first Load, never by the constructor.
type PromptStore struct {
	dir string

	initOnce sync.Once
	initErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore returns a store rooted at dir.
func NewPromptStore(dir string) *PromptStore {
	return &PromptStore{dir: dir, cache: make(map[string]string)}
}

// Load returns the template for name. A missing, blank or malformed file
// yields the default template.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := defaultPrompts[name]
	if !known {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
	}

	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return fallback, nil
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt := s.read(name, fallback)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[name]; ok {
		return existing, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload drops cached templates so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) read(name, fallback string) string {
	path := filepath.Join(s.dir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return fallback
	}
	if err := checkPlaceholders(prompt, placeholders[name]); err != nil {
		logger.Warn("Ignoring %s: %v", path, err)
		return fallback
	}
	return prompt
}

// checkPlaceholders formats the template with want markers and reports
// fmt's missing or extra argument errors. Templates sent verbatim are not checked.
func checkPlaceholders(prompt string, want int) error {
	if want == 0 {
		return nil
	}
	args := make([]any, want)
	for i := range args {
		args[i] = fmt.Sprintf("<<arg%d>>", i)
	}
	out := fmt.Sprintf(prompt, args...)
	if strings.Contains(out, "%!") {
		return fmt.Errorf("template must use exactly %d placeholders", want)
	}
	for _, a := range args {
		if !strings.Contains(out, a.(string)) {
			return fmt.Errorf("template must use exactly %d placeholders", want)
		}
	}
	return nil
}

func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		logger.Debug("Prompt store: %v", s.initErr)
		return
	}
	files := map[string]string{"README.md": promptReadme}
	for name, content := range defaultPrompts {
		files[name+".txt"] = content
	}
	for name, content := range files {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.initErr = fmt.Errorf("write %s: %w", name, err)
			logger.Debug("Prompt store: %v", s.initErr)
			return
		}
	}
}
