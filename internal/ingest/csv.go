package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseCSV reads a bid table: the header row names the resources (its first
// cell is ignored), and every further row is a person followed by one bid per
// resource. All resources get capacity 1 and every person is a single unit.
func ParseCSV(r io.Reader) (*Document, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty CSV", ErrInvalidDocument)
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: CSV header needs at least one resource column", ErrInvalidDocument)
	}

	doc := &Document{Bids: make(map[string]map[string]float64)}
	resources := make([]string, 0, len(header)-1)
	for _, cell := range header[1:] {
		id := strings.TrimSpace(cell)
		resources = append(resources, id)
		doc.Resources = append(doc.Resources, ResourceDoc{ID: id, Capacity: 1})
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		person := strings.TrimSpace(record[0])
		if person == "" {
			return nil, fmt.Errorf("%w: CSV row with empty person", ErrInvalidDocument)
		}
		if _, dup := doc.Bids[person]; dup {
			return nil, fmt.Errorf("%w: person %q listed twice", ErrInvalidDocument, person)
		}
		row := make(map[string]float64, len(resources))
		for i, resource := range resources {
			raw := strings.TrimSpace(record[i+1])
			bid, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bid %q of %s for %s is not a number", ErrInvalidDocument, raw, person, resource)
			}
			row[resource] = bid
		}
		doc.Bids[person] = row
		doc.Units = append(doc.Units, UnitDoc{ID: person})
	}
	return doc, nil
}
