package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/casekit/formfill/internal/mapping"
)

// ErrTemplateNotFound reports a render request for a form type with no
// template file on disk. Fatal to that render call.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateDir serves blank form templates from a directory. A form type maps
// to "<type>.pdf" lower-cased, e.g. I589 -> i589.pdf. Bytes are read fresh
// per call; templates are small and callers may cache.
type TemplateDir struct {
	dir string
}

func NewTemplateDir(dir string) TemplateDir {
	return TemplateDir{dir: dir}
}

// Path returns the file path a form type's template is expected at.
func (t TemplateDir) Path(form string) string {
	name := strings.ToLower(mapping.NormalizeForm(form)) + ".pdf"
	return filepath.Join(t.dir, name)
}

// Bytes loads the template for a form type.
func (t TemplateDir) Bytes(form string) ([]byte, error) {
	b, err := os.ReadFile(t.Path(form))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: form %s (%s)", ErrTemplateNotFound, form, t.Path(form))
		}
		return nil, fmt.Errorf("read template for %s: %w", form, err)
	}
	return b, nil
}
