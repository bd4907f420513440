// Package ingest reads division problems from YAML documents, JSON payloads
// and the classic CSV bid table, and converts them into problem.Input.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/fair-rent/internal/problem"
)

// ErrInvalidDocument is returned when a document fails structural validation.
var ErrInvalidDocument = errors.New("invalid problem document")

var documentValidate = validator.New()

// Document is the serialised form of a division problem.
type Document struct {
	HouseCost float64                       `json:"houseCost" yaml:"house_cost" validate:"gte=0"`
	Method    string                        `json:"method,omitempty" yaml:"method" validate:"omitempty,oneof=brams-kilgour sung-vlach bk sv"`
	Resources []ResourceDoc                 `json:"resources" yaml:"resources" validate:"required,min=1,dive"`
	Units     []UnitDoc                     `json:"units,omitempty" yaml:"units" validate:"omitempty,dive"`
	Bids      map[string]map[string]float64 `json:"bids" yaml:"bids" validate:"required,min=1"`
}

// ResourceDoc describes one resource.
type ResourceDoc struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	Capacity int    `json:"capacity" yaml:"capacity" validate:"oneof=1 2"`
}

// UnitDoc describes one unit. A unit with two members is a couple; otherwise
// it is a single agent identified by the unit ID.
type UnitDoc struct {
	ID      string   `json:"id" yaml:"id" validate:"required"`
	Members []string `json:"members,omitempty" yaml:"members" validate:"max=2,dive,required"`
}

// Validate checks the document's shape. Semantic checks happen in problem.New.
func (d *Document) Validate() error {
	if err := documentValidate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// Input converts the document. When no units are listed, every bidder becomes
// a single unit, ordered by name.
func (d *Document) Input() problem.Input {
	in := problem.Input{
		HouseCost: d.HouseCost,
		Resources: make([]problem.Resource, 0, len(d.Resources)),
		Bids:      make(problem.Bids, len(d.Bids)),
	}
	for _, r := range d.Resources {
		in.Resources = append(in.Resources, problem.Resource{ID: problem.ResourceID(r.ID), Capacity: r.Capacity})
	}

	units := d.Units
	if len(units) == 0 {
		names := make([]string, 0, len(d.Bids))
		for name := range d.Bids {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			units = append(units, UnitDoc{ID: name})
		}
	}
	for _, u := range units {
		in.Units = append(in.Units, u.unit())
	}

	for unit, row := range d.Bids {
		bids := make(map[problem.ResourceID]float64, len(row))
		for resource, bid := range row {
			bids[problem.ResourceID(resource)] = bid
		}
		in.Bids[problem.UnitID(unit)] = bids
	}
	return in
}

func (u UnitDoc) unit() problem.Unit {
	switch len(u.Members) {
	case 0:
		return problem.NewSingle(problem.AgentID(u.ID))
	case 2:
		return problem.NewPair(problem.UnitID(u.ID), problem.AgentID(u.Members[0]), problem.AgentID(u.Members[1]))
	default:
		members := make([]problem.AgentID, len(u.Members))
		for i, m := range u.Members {
			members[i] = problem.AgentID(m)
		}
		return problem.Unit{ID: problem.UnitID(u.ID), Kind: problem.Single, Members: members}
	}
}

// ParseYAML decodes a YAML document.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &doc, nil
}

// LoadFile reads a problem from a .yaml/.yml or .csv file. A non-nil houseCost
// replaces the document's cost, which CSV files never carry.
func LoadFile(path string, houseCost *float64) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var doc *Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		doc, err = ParseYAML(data)
	case ".csv":
		doc, err = ParseCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, err
	}
	if houseCost != nil {
		doc.HouseCost = *houseCost
	}
	return doc, nil
}
