// Package content loads the copy rendered on the portfolio page.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/joeyportfolio/portfolio/types"
	"gopkg.in/yaml.v3"
)

//go:embed portfolio.yaml
var defaultContent []byte

// Load reads the portfolio content from path. An empty path loads the
// built-in copy.
func Load(path string) (*types.PortfolioContent, error) {
	data := defaultContent
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read content: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes and validates portfolio content.
func Parse(data []byte) (*types.PortfolioContent, error) {
	var c types.PortfolioContent
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func validate(c *types.PortfolioContent) error {
	if c.Owner == "" {
		return errors.New("content: owner is required")
	}
	if c.Hero.Title == "" {
		return errors.New("content: hero title is required")
	}
	for i, p := range c.Projects {
		if p.Name == "" {
			return fmt.Errorf("content: project %d has no name", i)
		}
	}
	return nil
}
