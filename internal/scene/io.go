package scene

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Read decodes a YAML scene description.
func Read(r io.Reader) (*Scene, error) {
	var s Scene
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "scene: decode yaml")
	}
	return &s, nil
}

// Write encodes s as YAML.
func Write(w io.Writer, s *Scene) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "scene: encode yaml")
	}
	return errors.Wrap(enc.Close(), "scene: encode yaml")
}

// Load reads a scene description from path.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "scene: open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Save writes s to path.
func Save(path string, s *Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "scene: create %s", path)
	}
	if err := Write(f, s); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "scene: close %s", path)
}
