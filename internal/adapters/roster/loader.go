package roster

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// rawBytes serves an in-memory document to koanf.
type rawBytes []byte

func (b rawBytes) ReadBytes() ([]byte, error) { return b, nil }

func (b rawBytes) Read() (map[string]interface{}, error) {
	return nil, fmt.Errorf("%w: raw bytes need a parser", ErrLoadDocument)
}

// LoadFile reads the document at path.
func LoadFile(path string) (*Document, error) {
	return load(file.Provider(path))
}

// Parse reads a document from data.
func Parse(data []byte) (*Document, error) {
	return load(rawBytes(data))
}

func load(p koanf.Provider) (*Document, error) {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadDocument, err)
	}
	var doc Document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadDocument, err)
	}
	return &doc, nil
}
