package loader

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/pricescope/pkg/model"
)

// GroupsFile is the layout of .pscope/groups.yaml.
type GroupsFile struct {
	Products  []model.Group `yaml:"products"`
	Locations []model.Group `yaml:"locations"`
}

// For returns the groups of one dimension.
func (g GroupsFile) For(d model.Dimension) []model.Group {
	if d == model.DimensionLocation {
		return g.Locations
	}
	return g.Products
}

// LoadGroupsFile reads and validates a groups fixture. A missing file is not
// an error and yields no groups.
func LoadGroupsFile(path string) (GroupsFile, error) {
	var gf GroupsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return gf, nil
		}
		return gf, fmt.Errorf("reading groups %s: %w", path, err)
	}
	gf, err = ParseGroups(data)
	if err != nil {
		return GroupsFile{}, fmt.Errorf("groups %s: %w", path, err)
	}
	return gf, nil
}

// ParseGroups decodes and validates groups YAML. Ids must be unique within
// a dimension.
func ParseGroups(data []byte) (GroupsFile, error) {
	var gf GroupsFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return GroupsFile{}, fmt.Errorf("parsing: %w", err)
	}
	for _, list := range [][]model.Group{gf.Products, gf.Locations} {
		seen := make(map[int]bool, len(list))
		for i := range list {
			if err := list[i].Validate(); err != nil {
				return GroupsFile{}, err
			}
			if seen[list[i].ID] {
				return GroupsFile{}, fmt.Errorf("duplicate id %d", list[i].ID)
			}
			seen[list[i].ID] = true
		}
	}
	return gf, nil
}
