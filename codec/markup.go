package codec

import (
	"bytes"
	"encoding/json"

	"github.com/BurntSushi/toml"
	"github.com/milk9111/assetman/asset"
	"gopkg.in/yaml.v3"
)

// Markup decodes structured text into T, picking yaml, toml or json from the
// file extension.
type Markup[T any] struct{}

func (Markup[T]) Decode(name string, data []byte) (T, error) {
	var v T
	var err error
	switch Ext(name) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &v)
	case "toml":
		err = toml.Unmarshal(data, &v)
	case "json":
		err = json.Unmarshal(data, &v)
	default:
		return v, asset.DecodeError(name, "unknown markup format "+Ext(name), nil)
	}
	if err != nil {
		var zero T
		return zero, asset.DecodeError(name, Ext(name), err)
	}
	return v, nil
}

func (Markup[T]) Encode(name string, v T) ([]byte, error) {
	switch Ext(name) {
	case "yaml", "yml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, asset.EncodeError(name, "yaml", err)
		}
		return data, nil
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return nil, asset.EncodeError(name, "toml", err)
		}
		return buf.Bytes(), nil
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, asset.EncodeError(name, "json", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, asset.EncodeError(name, "unknown markup format "+Ext(name), nil)
	}
}
