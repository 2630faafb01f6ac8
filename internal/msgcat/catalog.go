package msgcat

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultMessages []byte

// Catalog holds the client-facing texts as compiled templates keyed by dotted path
// ("lobby.full"). It is read-only after New and safe for concurrent use.
type Catalog struct {
	texts map[string]*template.Template
}

// New compiles the embedded messages, then every *.yaml/*.yml file in overrideDir
// in name order. A key may be overridden by at most one file.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{texts: make(map[string]*template.Template)}
	if err := c.load("messages.en.yaml", defaultMessages, nil); err != nil {
		return nil, err
	}
	overrideDir = strings.TrimSpace(overrideDir)
	if overrideDir == "" {
		return c, nil
	}

	names, err := yamlFiles(overrideDir)
	if err != nil {
		return nil, err
	}
	owner := make(map[string]string)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(overrideDir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.load(name, raw, owner); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read message dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// load compiles every leaf of one YAML document. When owner is non-nil it records
// which file set each key and rejects a second file setting the same key.
func (c *Catalog) load(file string, raw []byte, owner map[string]string) error {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	leaves := make(map[string]string)
	if err := flatten(doc, "", leaves); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	for key, text := range leaves {
		if owner != nil {
			if prev, dup := owner[key]; dup {
				return fmt.Errorf("key %q set by both %s and %s", key, prev, file)
			}
			owner[key] = file
		}
		tpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return fmt.Errorf("%s: key %q: %w", file, key, err)
		}
		c.texts[key] = tpl
	}
	return nil
}

func flatten(node map[string]any, prefix string, out map[string]string) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch leaf := v.(type) {
		case map[string]any:
			if err := flatten(leaf, key, out); err != nil {
				return err
			}
		case string:
			out[key] = leaf
		case nil:
		default:
			return fmt.Errorf("key %q: want a string, got %T", key, v)
		}
	}
	return nil
}

// Keys returns every known key, sorted.
func (c *Catalog) Keys() []string {
	out := make([]string, 0, len(c.texts))
	for k := range c.texts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Render executes the template for key. Unknown keys and missing data fields are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	tpl, ok := c.texts[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("message not found: %s", key)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text is Render with the key itself as fallback.
func (c *Catalog) Text(key string, data any) string {
	if c == nil {
		return key
	}
	s, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return s
}
