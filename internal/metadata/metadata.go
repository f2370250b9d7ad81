// Package metadata reads and writes the YAML event and station descriptions
// shared by the event-dump accessor and the dataset exporters.
package metadata

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tunguska/internal/fileutil"
	"tunguska/internal/seismic"
)

type eventDoc struct {
	Name      string    `yaml:"name"`
	Time      time.Time `yaml:"time"`
	Latitude  float64   `yaml:"latitude"`
	Longitude float64   `yaml:"longitude"`
	Depth     float64   `yaml:"depth"`
	Magnitude float64   `yaml:"magnitude,omitempty"`
}

type channelDoc struct {
	Name     string  `yaml:"name"`
	Azimuth  float64 `yaml:"azimuth"`
	Dip      float64 `yaml:"dip"`
	Gain     float64 `yaml:"gain"`
	Response string  `yaml:"response,omitempty"`
}

type stationDoc struct {
	Network   string       `yaml:"network"`
	Station   string       `yaml:"station"`
	Location  string       `yaml:"location"`
	Latitude  float64      `yaml:"latitude"`
	Longitude float64      `yaml:"longitude"`
	Elevation float64      `yaml:"elevation,omitempty"`
	Depth     float64      `yaml:"depth,omitempty"`
	Channels  []channelDoc `yaml:"channels"`
}

// ReadEvents loads a YAML file holding either one event mapping or a list
// of events.
func ReadEvents(path string) ([]seismic.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var docs []eventDoc
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&docs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		var doc eventDoc
		if err := node.Content[0].Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		docs = []eventDoc{doc}
	}

	events := make([]seismic.Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, seismic.Event{
			Name:      d.Name,
			Time:      seismic.TimeToEpoch(d.Time),
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Depth:     d.Depth,
			Magnitude: d.Magnitude,
		})
	}
	return events, nil
}

// WriteEvent stores ev as a single YAML mapping.
func WriteEvent(path string, ev seismic.Event) error {
	doc := eventDoc{
		Name:      ev.Name,
		Time:      ev.OriginTime(),
		Latitude:  ev.Latitude,
		Longitude: ev.Longitude,
		Depth:     ev.Depth,
		Magnitude: ev.Magnitude,
	}
	return writeYAML(path, doc)
}

// ReadStations loads a YAML list of stations.
func ReadStations(path string) ([]*seismic.Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []stationDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]*seismic.Station, 0, len(docs))
	for _, d := range docs {
		st := &seismic.Station{
			Network:   d.Network,
			Station:   d.Station,
			Location:  d.Location,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Elevation: d.Elevation,
			Depth:     d.Depth,
		}
		for _, c := range d.Channels {
			st.Channels = append(st.Channels, seismic.Channel(c))
		}
		out = append(out, st)
	}
	return out, nil
}

// WriteStations stores stations as a YAML list.
func WriteStations(path string, stations []*seismic.Station) error {
	docs := make([]stationDoc, 0, len(stations))
	for _, st := range stations {
		d := stationDoc{
			Network:   st.Network,
			Station:   st.Station,
			Location:  st.Location,
			Latitude:  st.Latitude,
			Longitude: st.Longitude,
			Elevation: st.Elevation,
			Depth:     st.Depth,
		}
		for _, c := range st.Channels {
			d.Channels = append(d.Channels, channelDoc(c))
		}
		docs = append(docs, d)
	}
	return writeYAML(path, docs)
}

func writeYAML(path string, v any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
