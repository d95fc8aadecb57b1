// ABOUTME: Catalog of example task descriptions used to fill the query field at random.
// ABOUTME: Ships a built-in list and can load a replacement from a YAML file.
package visualizer

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is an ordered list of example queries.
type Catalog []string

// DefaultCatalog is the built-in example list.
var DefaultCatalog = Catalog{
	"Generate concise meeting notes from a transcript",
	"Write a short blog post or product description",
	"Convert natural language to SQL queries",
	"Provide instant customer support replies",
	"Summarize news articles",
	"Analyze financial news for market trends",
	"Automate repetitive coding tasks",
	"Translate technical documents between English/Chinese",
	"Build a FastAPI image classification app",
	"Develop full-stack Node.js applications",
	"Summarize videos/multimodal documents",
	"Solve complex math problems",
	"Generate specialized scientific reports",
	"Draft detailed legal contracts",
	"Calculate sum of integers in a range (Python)",
	"Extract structured data from medical records",
	"Classify short text messages",
	"Review code snippets",
	"Transcribe voice-to-text instantly",
	"Debug complex algorithms",
}

// Contains reports whether q is in the catalog.
func (c Catalog) Contains(q string) bool {
	for _, entry := range c {
		if entry == q {
			return true
		}
	}
	return false
}

// Pick returns a uniformly random entry using intn, which must behave like
// rand.IntN. A nil intn uses the global source.
func (c Catalog) Pick(intn func(int) int) (string, bool) {
	if len(c) == 0 {
		return "", false
	}
	if intn == nil {
		intn = rand.IntN
	}
	return c[intn(len(c))], true
}

type catalogFile struct {
	Examples []string `yaml:"examples"`
}

// LoadCatalog reads a YAML file of the form
//
//	examples:
//	  - "Summarize news articles"
//
// Blank entries are dropped; an empty list yields an empty catalog.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading example catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing example catalog %s: %w", path, err)
	}
	c := make(Catalog, 0, len(f.Examples))
	for _, e := range f.Examples {
		if e = strings.TrimSpace(e); e != "" {
			c = append(c, e)
		}
	}
	return c, nil
}
