package soundbank

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"tack/sample"
)

// Manifest is the on-disk preset list:
//
//	presets:
//	  - name: clave
//	    strong_long: false
//	    normal: {payload: wood}
//	    strong: {payload: wood, pitch: up}
//	    sub:    {payload: wood, pitch: down}
type Manifest struct {
	Presets []manifestPreset `yaml:"presets"`
}

type manifestPreset struct {
	Name       string       `yaml:"name"`
	StrongLong bool         `yaml:"strong_long"`
	Normal     manifestSlot `yaml:"normal"`
	Strong     manifestSlot `yaml:"strong"`
	Sub        manifestSlot `yaml:"sub"`
}

type manifestSlot struct {
	Payload string `yaml:"payload"`
	Pitch   string `yaml:"pitch"`
}

func LoadManifest(r io.Reader) ([]Preset, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	presets := make([]Preset, 0, len(m.Presets))
	for i, mp := range m.Presets {
		if mp.Name == "" {
			return nil, fmt.Errorf("manifest preset %d: missing name", i)
		}
		p := Preset{Name: mp.Name, StrongLong: mp.StrongLong}
		slots := []struct {
			label string
			in    manifestSlot
			out   *Slot
		}{
			{"normal", mp.Normal, &p.Normal},
			{"strong", mp.Strong, &p.Strong},
			{"sub", mp.Sub, &p.Sub},
		}
		for _, s := range slots {
			if s.in.Payload == "" {
				return nil, fmt.Errorf("manifest preset %s: %s slot has no payload", mp.Name, s.label)
			}
			pitch, err := sample.ParsePitch(s.in.Pitch)
			if err != nil {
				return nil, fmt.Errorf("manifest preset %s: %s slot: %w", mp.Name, s.label, err)
			}
			*s.out = Slot{Payload: s.in.Payload, Pitch: pitch}
		}
		presets = append(presets, p)
	}
	return presets, nil
}

func LoadManifestFile(path string) ([]Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	return LoadManifest(f)
}
